package sound

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// commandTimeout is the maximum time a speech or beep command may run
	commandTimeout = 30 * time.Second

	// maxStderr is how much command stderr is kept for error messages
	maxStderr = 4096
)

// CommandSpeaker plays audio through external programs.
//
// The speech command receives the text on stdin (for example
// ["espeak", "--stdin"]). The beep command receives the path of
// <dir>/<beep>.wav as its final argument (for example ["aplay", "-q"]).
type CommandSpeaker struct {
	speech []string
	beep   []string
	dir    string
}

// NewCommandSpeaker creates a speaker. Either command may be empty, which
// turns the corresponding output into a no-op.
func NewCommandSpeaker(speech, beep []string, dir string) *CommandSpeaker {
	return &CommandSpeaker{speech: speech, beep: beep, dir: dir}
}

// Speak implements Speaker.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	if len(s.speech) == 0 {
		return nil
	}
	return run(ctx, s.speech, strings.NewReader(text))
}

// Play implements Speaker.
func (s *CommandSpeaker) Play(ctx context.Context, beep Beep) error {
	if len(s.beep) == 0 {
		return nil
	}
	args := append(append([]string(nil), s.beep...), filepath.Join(s.dir, string(beep)+".wav"))
	return run(ctx, args, nil)
}

func run(ctx context.Context, command []string, stdin *strings.Reader) error {
	execCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, command[0], command[1:]...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	stderr := &limitedBuffer{limit: maxStderr}
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s timed out after %s", command[0], commandTimeout)
	case errors.As(err, &exitErr):
		return fmt.Errorf("%s exited with code %d: %s", command[0], exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
	default:
		return fmt.Errorf("failed to run %s: %w", command[0], err)
	}
}

// limitedBuffer keeps the first limit bytes written and discards the rest.
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if n > remaining {
			p = p[:remaining]
		}
		b.buf.Write(p)
	}
	return n, nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
