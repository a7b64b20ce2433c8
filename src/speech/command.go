package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// CommandEngine speaks through a local TTS binary such as espeak or say.
type CommandEngine struct {
	Name string
	Args []string
}

// NewCommandEngine picks the platform's stock speech command.
func NewCommandEngine() *CommandEngine {
	if runtime.GOOS == "darwin" {
		return &CommandEngine{Name: "say"}
	}
	return &CommandEngine{Name: "espeak"}
}

// Speak passes text as the final operand after "--", so text starting with a dash is never read as a flag.
func (c *CommandEngine) Speak(ctx context.Context, text string) error {
	args := append(append([]string{}, c.Args...), "--", text)
	out, err := exec.CommandContext(ctx, c.Name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", c.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// CommandPlayer pipes audio into a player binary's stdin.
type CommandPlayer struct {
	Name string
	Args []string
}

// NewCommandPlayer returns an ffplay player reading from stdin.
func NewCommandPlayer() *CommandPlayer {
	return &CommandPlayer{
		Name: "ffplay",
		Args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-i", "pipe:0"},
	}
}

func (p *CommandPlayer) Play(ctx context.Context, audio Audio) error {
	if audio.Empty() {
		return nil
	}
	cmd := exec.CommandContext(ctx, p.Name, p.Args...)
	cmd.Stdin = bytes.NewReader(audio.Data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", p.Name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

var (
	_ LocalEngine = (*CommandEngine)(nil)
	_ Player      = (*CommandPlayer)(nil)
)
