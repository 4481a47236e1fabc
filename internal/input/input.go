// Package input injects synthetic pointer events through external tools.
package input

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rbright/saytap/internal/config"
	"github.com/rbright/saytap/internal/errs"
	"github.com/rbright/saytap/internal/hypr"
)

// Backend names accepted by config input.backend.
const (
	BackendAuto    = "auto"
	BackendXdotool = "xdotool"
	BackendYdotool = "ydotool"
	BackendHypr    = "hypr"
	BackendCommand = "command"
)

var (
	xdotoolMove  = []string{"xdotool", "mousemove", "{x}", "{y}"}
	xdotoolClick = []string{"xdotool", "click", "1"}
	ydotoolMove  = []string{"ydotool", "mousemove", "--absolute", "-x", "{x}", "-y", "{y}"}
	// 0xC0 is left button down+up.
	ydotoolClick = []string{"ydotool", "click", "0xC0"}
)

// Injector moves the pointer and clicks through argv templates. The hypr
// backend warps with hyprctl and clicks through the click template.
type Injector struct {
	backend   string
	moveArgv  []string
	clickArgv []string
	hyprMove  bool
}

// New resolves cfg into an Injector. Explicit move_cmd/click_cmd argv
// override the backend defaults.
func New(cfg config.InputConfig) (*Injector, error) {
	backend := ResolveBackend(cfg.Backend, os.Getenv)

	inj := &Injector{backend: backend}
	switch backend {
	case BackendXdotool:
		inj.moveArgv, inj.clickArgv = xdotoolMove, xdotoolClick
	case BackendYdotool:
		inj.moveArgv, inj.clickArgv = ydotoolMove, ydotoolClick
	case BackendHypr:
		inj.hyprMove = true
		inj.clickArgv = ydotoolClick
	case BackendCommand:
	default:
		return nil, fmt.Errorf("unsupported input backend %q", cfg.Backend)
	}

	if len(cfg.MoveCmd.Argv) > 0 {
		inj.moveArgv = append([]string(nil), cfg.MoveCmd.Argv...)
		inj.hyprMove = false
	}
	if len(cfg.ClickCmd.Argv) > 0 {
		inj.clickArgv = append([]string(nil), cfg.ClickCmd.Argv...)
	}

	if !inj.hyprMove && len(inj.moveArgv) == 0 {
		return nil, fmt.Errorf("input backend %q requires input.move_cmd", backend)
	}
	if len(inj.clickArgv) == 0 {
		return nil, fmt.Errorf("input backend %q requires input.click_cmd", backend)
	}
	return inj, nil
}

// ResolveBackend maps "auto" (or empty) to a concrete backend from the
// session environment.
func ResolveBackend(backend string, getenv func(string) string) string {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend != "" && backend != BackendAuto {
		return backend
	}
	switch {
	case getenv("HYPRLAND_INSTANCE_SIGNATURE") != "":
		return BackendHypr
	case getenv("WAYLAND_DISPLAY") != "":
		return BackendYdotool
	default:
		return BackendXdotool
	}
}

// Backend reports the resolved backend name.
func (i *Injector) Backend() string {
	return i.backend
}

// Binaries lists the executables this injector shells out to.
func (i *Injector) Binaries() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if i.hyprMove {
		add("hyprctl")
	} else if len(i.moveArgv) > 0 {
		add(i.moveArgv[0])
	}
	if len(i.clickArgv) > 0 {
		add(i.clickArgv[0])
	}
	return out
}

// MoveTo warps the pointer to absolute (x, y).
func (i *Injector) MoveTo(ctx context.Context, x, y int) error {
	if i.hyprMove {
		return errs.Wrap(errs.KindInjection, "input.move", "hyprctl movecursor", hypr.MoveCursor(ctx, x, y))
	}
	argv := expandArgv(i.moveArgv, x, y)
	return errs.Wrap(errs.KindInjection, "input.move", argv[0], runCommand(ctx, argv))
}

// Click issues one left-button press and release at the current position.
func (i *Injector) Click(ctx context.Context) error {
	return errs.Wrap(errs.KindInjection, "input.click", i.clickArgv[0], runCommand(ctx, i.clickArgv))
}

func expandArgv(template []string, x, y int) []string {
	xs, ys := strconv.Itoa(x), strconv.Itoa(y)
	out := make([]string, len(template))
	for idx, arg := range template {
		arg = strings.ReplaceAll(arg, "{x}", xs)
		out[idx] = strings.ReplaceAll(arg, "{y}", ys)
	}
	return out
}

func runCommand(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("%s failed: %w", argv[0], err)
		}
		return fmt.Errorf("%s failed: %w (%s)", argv[0], err, trimmed)
	}
	return nil
}
