// Package ipc is the local control channel of a running saytap service: one
// newline-delimited JSON request and response per unix-socket connection.
package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Request is one command sent to the running service.
type Request struct {
	Command string `json:"command"`
}

// Response answers a Request. Counters and Regions are only set by status.
type Response struct {
	OK       bool             `json:"ok"`
	State    string           `json:"state,omitempty"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
	Regions  int              `json:"regions,omitempty"`
	Counters map[string]int64 `json:"counters,omitempty"`
}

func failure(format string, args ...any) Response {
	return Response{OK: false, Error: fmt.Sprintf(format, args...)}
}

// writeMessage encodes v as a single JSON line.
func writeMessage(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// readMessage decodes the next JSON line from r into v. what names the
// message in errors ("request" or "response").
func readMessage(r *bufio.Reader, what string, v any) error {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read %s: %w", what, err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}
