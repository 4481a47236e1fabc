package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
)

type messages struct {
	listening    string
	clicked      string
	missing      string
	failed       string
	reloaded     string
	reloadFailed string
	errorText    string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			listening:    "Listening…",
			clicked:      "Clicked %s",
			missing:      "No region named %s",
			failed:       "Click on %s failed",
			reloaded:     "Regions reloaded (%d)",
			reloadFailed: "Regions reload failed",
			errorText:    "Voice command error",
		}
	}
}
