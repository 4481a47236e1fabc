package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Monitor is one output in the Hyprland layout.
type Monitor struct {
	Name    string  `json:"name"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Scale   float64 `json:"scale"`
	Focused bool    `json:"focused"`
}

// Contains reports whether layout point (x, y) falls on m. Width and height
// are physical pixels, so they are divided by scale.
func (m Monitor) Contains(x, y int) bool {
	scale := m.Scale
	if scale <= 0 {
		scale = 1
	}
	w := int(float64(m.Width) / scale)
	h := int(float64(m.Height) / scale)
	return x >= m.X && x < m.X+w && y >= m.Y && y < m.Y+h
}

// CursorPos is the pointer location in layout coordinates.
type CursorPos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// QueryMonitors lists every monitor in the current layout.
func QueryMonitors(ctx context.Context) ([]Monitor, error) {
	output, err := runHyprctlJSON(ctx, "monitors")
	if err != nil {
		return nil, err
	}

	var monitors []Monitor
	if err := json.Unmarshal(output, &monitors); err != nil {
		return nil, fmt.Errorf("decode hyprctl monitors json: %w", err)
	}
	for i := range monitors {
		monitors[i].Name = strings.TrimSpace(monitors[i].Name)
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("hyprctl monitors returned no outputs")
	}
	return monitors, nil
}

// QueryFocusedMonitor returns the focused monitor name (or the first monitor fallback).
func QueryFocusedMonitor(ctx context.Context) (string, error) {
	monitors, err := QueryMonitors(ctx)
	if err != nil {
		return "", err
	}
	for _, mon := range monitors {
		if mon.Focused {
			return mon.Name, nil
		}
	}
	return monitors[0].Name, nil
}

// QueryCursorPos reads the current pointer position.
func QueryCursorPos(ctx context.Context) (CursorPos, error) {
	output, err := runHyprctlJSON(ctx, "cursorpos")
	if err != nil {
		return CursorPos{}, err
	}
	var pos CursorPos
	if err := json.Unmarshal(output, &pos); err != nil {
		return CursorPos{}, fmt.Errorf("decode hyprctl cursorpos json: %w", err)
	}
	return pos, nil
}

// runHyprctlJSON executes a JSON-returning hyprctl subcommand.
func runHyprctlJSON(ctx context.Context, target string) ([]byte, error) {
	output, err := runHyprctlOutput(ctx, "-j", target)
	if err != nil {
		return nil, err
	}
	return output, nil
}
