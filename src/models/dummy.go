package models

import (
	"context"
	"fmt"
	"strings"
)

// DummyLLM is a lightweight invoker useful for local testing without API calls.
type DummyLLM struct {
	Prefix string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyLLM{Prefix: prefix}
}

// Invoke echoes the last non-empty prompt line and counts attachments.
func (d *DummyLLM) Invoke(_ context.Context, prompt string, files []File) (string, error) {
	last := lastLine(prompt)
	if last == "" {
		last = "<empty prompt>"
	}
	if len(files) > 0 {
		return fmt.Sprintf("%s %s (%d attachments)", d.Prefix, last, len(files)), nil
	}
	return fmt.Sprintf("%s %s", d.Prefix, last), nil
}

var _ Invoker = (*DummyLLM)(nil)
