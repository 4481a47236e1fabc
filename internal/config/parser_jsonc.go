package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Model     *jsoncModel     `json:"model"`
	Audio     *jsoncAudio     `json:"audio"`
	Simulate  *jsoncSimulate  `json:"simulate"`
	Regions   *jsoncRegions   `json:"regions"`
	Commands  *jsoncCommands  `json:"commands"`
	Dispatch  *jsoncDispatch  `json:"dispatch"`
	Input     *jsoncInput     `json:"input"`
	Indicator *jsoncIndicator `json:"indicator"`
	Debug     *jsoncDebug     `json:"debug"`
}

type jsoncModel struct {
	Path    *string          `json:"path"`
	Grammar *jsoncStringList `json:"grammar"`
}

type jsoncAudio struct {
	Backend  *string `json:"backend"`
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
	WAVFile  *string `json:"wav_file"`
	FrameMS  *int    `json:"frame_ms"`
}

type jsoncSimulate struct {
	IntervalMS *int             `json:"interval_ms"`
	Phrases    *jsoncStringList `json:"phrases"`
}

type jsoncRegions struct {
	Path  *string `json:"path"`
	Watch *bool   `json:"watch"`
}

type jsoncCommands struct {
	Rules     []jsoncRule `json:"rules"`
	RulesFile *string     `json:"rules_file"`
}

type jsoncRule struct {
	Pattern string `json:"pattern"`
	Command string `json:"command"`
}

type jsoncDispatch struct {
	TickMS        *int    `json:"tick_ms"`
	SettleMS      *int    `json:"settle_ms"`
	QueueCapacity *int    `json:"queue_capacity"`
	Overflow      *string `json:"overflow"`
}

type jsoncInput struct {
	Backend  *string `json:"backend"`
	MoveCmd  *string `json:"move_cmd"`
	ClickCmd *string `json:"click_cmd"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	ShowPartial    *bool   `json:"show_partial"`
	TimeoutMS      *int    `json:"timeout_ms"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
	Verbose   *bool `json:"verbose"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = trimNonEmpty(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = trimNonEmpty(strings.Split(single, ","))
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func trimNonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Model != nil {
		if payload.Model.Path != nil {
			cfg.Model.Path = strings.TrimSpace(*payload.Model.Path)
		}
		if payload.Model.Grammar != nil {
			cfg.Model.Grammar = []string(*payload.Model.Grammar)
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Backend != nil {
			cfg.Audio.Backend = strings.ToLower(strings.TrimSpace(*payload.Audio.Backend))
		}
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
		if payload.Audio.WAVFile != nil {
			cfg.Audio.WAVFile = strings.TrimSpace(*payload.Audio.WAVFile)
		}
		if payload.Audio.FrameMS != nil {
			cfg.Audio.FrameMS = *payload.Audio.FrameMS
		}
	}

	if payload.Simulate != nil {
		if payload.Simulate.IntervalMS != nil {
			cfg.Simulate.IntervalMS = *payload.Simulate.IntervalMS
		}
		if payload.Simulate.Phrases != nil {
			cfg.Simulate.Phrases = []string(*payload.Simulate.Phrases)
		}
	}

	if payload.Regions != nil {
		if payload.Regions.Path != nil {
			cfg.Regions.Path = strings.TrimSpace(*payload.Regions.Path)
		}
		if payload.Regions.Watch != nil {
			cfg.Regions.Watch = *payload.Regions.Watch
		}
	}

	if payload.Commands != nil {
		if payload.Commands.Rules != nil {
			rules := make([]RuleConfig, 0, len(payload.Commands.Rules))
			for i, rule := range payload.Commands.Rules {
				pattern := strings.ToLower(strings.TrimSpace(rule.Pattern))
				command := strings.ToLower(strings.TrimSpace(rule.Command))
				if pattern == "" {
					return nil, fmt.Errorf("commands.rules[%d].pattern must not be empty", i)
				}
				if command == "" {
					return nil, fmt.Errorf("commands.rules[%d].command must not be empty", i)
				}
				rules = append(rules, RuleConfig{Pattern: pattern, Command: command})
			}
			cfg.Commands.Rules = rules
		}
		if payload.Commands.RulesFile != nil {
			cfg.Commands.RulesFile = strings.TrimSpace(*payload.Commands.RulesFile)
		}
	}

	if payload.Dispatch != nil {
		if payload.Dispatch.TickMS != nil {
			cfg.Dispatch.TickMS = *payload.Dispatch.TickMS
		}
		if payload.Dispatch.SettleMS != nil {
			cfg.Dispatch.SettleMS = *payload.Dispatch.SettleMS
		}
		if payload.Dispatch.QueueCapacity != nil {
			cfg.Dispatch.QueueCapacity = *payload.Dispatch.QueueCapacity
		}
		if payload.Dispatch.Overflow != nil {
			cfg.Dispatch.Overflow = strings.ToLower(strings.TrimSpace(*payload.Dispatch.Overflow))
		}
	}

	if payload.Input != nil {
		if payload.Input.Backend != nil {
			cfg.Input.Backend = strings.ToLower(strings.TrimSpace(*payload.Input.Backend))
		}
		if payload.Input.MoveCmd != nil {
			raw := *payload.Input.MoveCmd
			argv, err := parseArgv(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid input.move_cmd: %w", err)
			}
			cfg.Input.MoveCmd = CommandConfig{Raw: raw, Argv: argv}
		}
		if payload.Input.ClickCmd != nil {
			raw := *payload.Input.ClickCmd
			argv, err := parseArgv(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid input.click_cmd: %w", err)
			}
			cfg.Input.ClickCmd = CommandConfig{Raw: raw, Argv: argv}
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.Backend != nil {
			cfg.Indicator.Backend = strings.TrimSpace(*payload.Indicator.Backend)
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.ShowPartial != nil {
			cfg.Indicator.ShowPartial = *payload.Indicator.ShowPartial
		}
		if payload.Indicator.TimeoutMS != nil {
			cfg.Indicator.TimeoutMS = *payload.Indicator.TimeoutMS
		}
	}

	if payload.Debug != nil {
		if payload.Debug.AudioDump != nil {
			cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
		}
		if payload.Debug.Verbose != nil {
			cfg.Debug.Verbose = *payload.Debug.Verbose
		}
	}

	if cfg.Regions.Watch && cfg.Regions.Path == "" {
		warnings = append(warnings, Warning{Message: "regions.watch is set but regions.path is empty; watching disabled"})
		cfg.Regions.Watch = false
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
