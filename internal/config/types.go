// Package config resolves, parses, validates, and defaults saytap configuration.
package config

// Config is the fully materialized runtime configuration used by saytap.
type Config struct {
	Model     ModelConfig
	Audio     AudioConfig
	Simulate  SimulateConfig
	Regions   RegionsConfig
	Commands  CommandsConfig
	Dispatch  DispatchConfig
	Input     InputConfig
	Indicator IndicatorConfig
	Debug     DebugConfig
}

// ModelConfig locates the acoustic model and optionally narrows its grammar.
type ModelConfig struct {
	Path    string
	Grammar []string
}

// AudioConfig controls the capture backend and input-source selection.
type AudioConfig struct {
	Backend  string
	Input    string
	Fallback string
	WAVFile  string
	FrameMS  int
}

// SimulateConfig drives the scripted recognizer used by the simulate backend.
type SimulateConfig struct {
	IntervalMS int
	Phrases    []string
}

// RegionsConfig locates the region file and toggles hot reload.
type RegionsConfig struct {
	Path  string
	Watch bool
}

// CommandsConfig holds the ordered classification rules.
type CommandsConfig struct {
	Rules     []RuleConfig
	RulesFile string
}

// RuleConfig maps a lowercase substring pattern to a command name.
type RuleConfig struct {
	Pattern string
	Command string
}

// DispatchConfig controls consumer cadence, click settling, and queue bounds.
type DispatchConfig struct {
	TickMS        int
	SettleMS      int
	QueueCapacity int
	Overflow      string
}

// InputConfig selects how synthetic pointer events are injected.
type InputConfig struct {
	Backend  string
	MoveCmd  CommandConfig
	ClickCmd CommandConfig
}

// IndicatorConfig controls notification and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ShowPartial    bool
	TimeoutMS      int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
	Verbose         bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
