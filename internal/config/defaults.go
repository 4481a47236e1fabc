package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Path: "model",
		},
		Audio: AudioConfig{
			Backend:  "pulse",
			Input:    "default",
			Fallback: "default",
			FrameMS:  100,
		},
		Simulate: SimulateConfig{
			IntervalMS: 5000,
			Phrases:    []string{"power", "start", "stop"},
		},
		Regions: RegionsConfig{
			Path: "regions.json",
		},
		Commands: CommandsConfig{
			Rules: []RuleConfig{
				{Pattern: "power", Command: "power"},
				{Pattern: "stop", Command: "stop"},
				{Pattern: "start", Command: "start"},
				{Pattern: "go", Command: "start"},
			},
		},
		Dispatch: DispatchConfig{
			TickMS:        100,
			SettleMS:      100,
			QueueCapacity: 64,
			Overflow:      "drop-oldest",
		},
		Input: InputConfig{
			Backend: "auto",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "saytap",
			SoundEnable:    true,
			TimeoutMS:      1600,
		},
		Debug: DebugConfig{},
	}
}
