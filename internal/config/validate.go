package config

import (
	"fmt"
	"strings"
)

var (
	audioBackends    = []string{"pulse", "portaudio", "wav", "simulate"}
	inputBackends    = []string{"auto", "xdotool", "ydotool", "hypr", "command"}
	overflowPolicies = []string{"drop-oldest", "drop-newest"}
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Model.Path) == "" {
		return nil, fmt.Errorf("model.path must not be empty")
	}

	if !oneOf(cfg.Audio.Backend, audioBackends) {
		return nil, fmt.Errorf("audio.backend must be one of: %s", strings.Join(audioBackends, ", "))
	}
	if cfg.Audio.Backend == "wav" && strings.TrimSpace(cfg.Audio.WAVFile) == "" {
		return nil, fmt.Errorf("audio.wav_file must not be empty when audio.backend=wav")
	}
	if cfg.Audio.FrameMS <= 0 || cfg.Audio.FrameMS > 1000 {
		return nil, fmt.Errorf("audio.frame_ms must be in 1..1000")
	}

	if cfg.Simulate.IntervalMS <= 0 {
		return nil, fmt.Errorf("simulate.interval_ms must be > 0")
	}
	if cfg.Audio.Backend == "simulate" && len(cfg.Simulate.Phrases) == 0 {
		return nil, fmt.Errorf("simulate.phrases must not be empty when audio.backend=simulate")
	}

	if strings.TrimSpace(cfg.Regions.Path) == "" {
		warnings = append(warnings, Warning{Message: "regions.path is empty; every command will miss"})
	}

	if len(cfg.Commands.Rules) == 0 && strings.TrimSpace(cfg.Commands.RulesFile) == "" {
		return nil, fmt.Errorf("commands.rules must not be empty unless commands.rules_file is set")
	}

	if cfg.Dispatch.TickMS <= 0 {
		return nil, fmt.Errorf("dispatch.tick_ms must be > 0")
	}
	if cfg.Dispatch.SettleMS < 0 {
		return nil, fmt.Errorf("dispatch.settle_ms must be >= 0")
	}
	if cfg.Dispatch.QueueCapacity < 0 {
		return nil, fmt.Errorf("dispatch.queue_capacity must be >= 0")
	}
	if cfg.Dispatch.QueueCapacity == 0 {
		warnings = append(warnings, Warning{Message: "dispatch.queue_capacity=0 leaves the command queue unbounded"})
	}
	if !oneOf(cfg.Dispatch.Overflow, overflowPolicies) {
		return nil, fmt.Errorf("dispatch.overflow must be one of: %s", strings.Join(overflowPolicies, ", "))
	}

	if !oneOf(cfg.Input.Backend, inputBackends) {
		return nil, fmt.Errorf("input.backend must be one of: %s", strings.Join(inputBackends, ", "))
	}
	if cfg.Input.MoveCmd.Raw != "" && len(cfg.Input.MoveCmd.Argv) == 0 {
		return nil, fmt.Errorf("input.move_cmd is configured but empty")
	}
	if cfg.Input.ClickCmd.Raw != "" && len(cfg.Input.ClickCmd.Argv) == 0 {
		return nil, fmt.Errorf("input.click_cmd is configured but empty")
	}
	if cfg.Input.Backend == "command" && (len(cfg.Input.MoveCmd.Argv) == 0 || len(cfg.Input.ClickCmd.Argv) == 0) {
		return nil, fmt.Errorf("input.move_cmd and input.click_cmd are required when input.backend=command")
	}
	if cfg.Input.Backend == "command" && !strings.Contains(cfg.Input.MoveCmd.Raw, "{x}") {
		warnings = append(warnings, Warning{Message: "input.move_cmd has no {x} placeholder"})
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.TimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.timeout_ms must be >= 0")
	}

	return warnings, nil
}

func oneOf(value string, allowed []string) bool {
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	return false
}
