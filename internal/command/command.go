// Package command classifies recognized text into the closed command vocabulary.
package command

import (
	"fmt"
	"strings"
)

// Command is one member of the fixed vocabulary. Its string form doubles as
// the region name the dispatcher clicks.
type Command string

const (
	Power Command = "power"
	Start Command = "start"
	Stop  Command = "stop"
)

// All lists the vocabulary in declaration order.
func All() []Command {
	return []Command{Power, Start, Stop}
}

// Valid reports whether c belongs to the vocabulary.
func (c Command) Valid() bool {
	switch c {
	case Power, Start, Stop:
		return true
	default:
		return false
	}
}

func (c Command) String() string {
	return string(c)
}

// Parse maps a command name to its Command.
func Parse(name string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(name)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown command %q (want one of: power, start, stop)", name)
	}
	return c, nil
}
