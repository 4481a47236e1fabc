// Package doctor runs readiness diagnostics for config, model, regions, input tools, and audio.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/rbright/saytap/internal/audio"
	"github.com/rbright/saytap/internal/command"
	"github.com/rbright/saytap/internal/config"
	"github.com/rbright/saytap/internal/hypr"
	"github.com/rbright/saytap/internal/input"
	"github.com/rbright/saytap/internal/region"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, fs afero.Fs, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", loaded.Path),
	})

	checks = append(checks, checkEnv("DISPLAY", func(string) bool {
		return strings.TrimSpace(os.Getenv("DISPLAY")) != "" || strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) != ""
	}, "graphical session detected", "neither DISPLAY nor WAYLAND_DISPLAY is set"))

	checks = append(checks, checkModel(cfg))

	regions, regionsCheck := checkRegions(fs, cfg.Regions)
	checks = append(checks, regionsCheck)
	checks = append(checks, checkRules(fs, cfg.Commands))
	checks = append(checks, checkInput(cfg.Input)...)

	if strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) != "" && len(regions) > 0 {
		checks = append(checks, checkRegionsOnScreen(ctx, regions))
	}

	checks = append(checks, checkAudio(ctx, fs, cfg))

	if cfg.Indicator.Enable && strings.EqualFold(strings.TrimSpace(cfg.Indicator.Backend), "hypr") {
		checks = append(checks, checkBinary("hyprctl", "indicator notifications"))
	}

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkModel(cfg config.Config) Check {
	if cfg.Audio.Backend == "simulate" {
		return Check{Name: "model", Pass: true, Message: "simulate backend uses the scripted recognizer"}
	}
	info, err := os.Stat(cfg.Model.Path)
	if err != nil {
		return Check{Name: "model", Pass: false, Message: fmt.Sprintf("model directory %q unavailable: %v", cfg.Model.Path, err)}
	}
	if !info.IsDir() {
		return Check{Name: "model", Pass: false, Message: fmt.Sprintf("model path %q is not a directory", cfg.Model.Path)}
	}
	return Check{Name: "model", Pass: true, Message: fmt.Sprintf("found %q", cfg.Model.Path)}
}

func checkRegions(fs afero.Fs, cfg config.RegionsConfig) (map[string]region.Region, Check) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, Check{Name: "regions", Pass: false, Message: "regions.path is empty"}
	}
	regions, warnings, err := region.LoadFile(fs, cfg.Path)
	if err != nil {
		return nil, Check{Name: "regions", Pass: false, Message: err.Error()}
	}

	message := fmt.Sprintf("%d regions from %q", len(regions), cfg.Path)
	if missing := missingCommandRegions(regions); len(missing) > 0 {
		message += fmt.Sprintf("; no region for %s", strings.Join(missing, ", "))
	}
	if len(warnings) > 0 {
		message += " (" + strings.Join(warnings, "; ") + ")"
	}
	return regions, Check{Name: "regions", Pass: true, Message: message}
}

// missingCommandRegions names commands that would dispatch to nothing.
func missingCommandRegions(regions map[string]region.Region) []string {
	var missing []string
	for _, cmd := range command.All() {
		if _, ok := regions[string(cmd)]; !ok {
			missing = append(missing, string(cmd))
		}
	}
	return missing
}

func checkRules(fs afero.Fs, cfg config.CommandsConfig) Check {
	classifier, err := command.FromConfig(fs, cfg)
	if err != nil {
		return Check{Name: "commands", Pass: false, Message: err.Error()}
	}
	return Check{Name: "commands", Pass: true, Message: fmt.Sprintf("%d rules", len(classifier.Rules()))}
}

func checkInput(cfg config.InputConfig) []Check {
	injector, err := input.New(cfg)
	if err != nil {
		return []Check{{Name: "input", Pass: false, Message: err.Error()}}
	}
	checks := []Check{{Name: "input", Pass: true, Message: fmt.Sprintf("backend %s", injector.Backend())}}
	for _, bin := range injector.Binaries() {
		checks = append(checks, checkBinary(bin, "pointer injection"))
	}
	return checks
}

// checkRegionsOnScreen flags regions whose click target lies outside every monitor.
func checkRegionsOnScreen(ctx context.Context, regions map[string]region.Region) Check {
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	monitors, err := hypr.QueryMonitors(queryCtx)
	if err != nil {
		return Check{Name: "regions.layout", Pass: false, Message: err.Error()}
	}

	offscreen := offscreenRegions(regions, monitors)
	if len(offscreen) > 0 {
		return Check{
			Name:    "regions.layout",
			Pass:    false,
			Message: fmt.Sprintf("click target off every monitor: %s", strings.Join(offscreen, ", ")),
		}
	}
	return Check{Name: "regions.layout", Pass: true, Message: fmt.Sprintf("all targets on %d monitors", len(monitors))}
}

func offscreenRegions(regions map[string]region.Region, monitors []hypr.Monitor) []string {
	var offscreen []string
	for name, reg := range regions {
		x, y := reg.Center()
		visible := false
		for _, m := range monitors {
			if m.Contains(x, y) {
				visible = true
				break
			}
		}
		if !visible {
			offscreen = append(offscreen, name)
		}
	}
	sort.Strings(offscreen)
	return offscreen
}

func checkAudio(ctx context.Context, fs afero.Fs, cfg config.Config) Check {
	switch cfg.Audio.Backend {
	case "pulse":
		return checkAudioSelection(ctx, cfg)
	case "portaudio":
		return Check{Name: "audio", Pass: true, Message: "portaudio default input (opened at run)"}
	case "wav":
		if _, err := fs.Stat(cfg.Audio.WAVFile); err != nil {
			return Check{Name: "audio", Pass: false, Message: fmt.Sprintf("wav file %q unavailable: %v", cfg.Audio.WAVFile, err)}
		}
		return Check{Name: "audio", Pass: true, Message: fmt.Sprintf("replaying %q", cfg.Audio.WAVFile)}
	default:
		return Check{Name: "audio", Pass: true, Message: fmt.Sprintf("%s backend needs no device", cfg.Audio.Backend)}
	}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}
