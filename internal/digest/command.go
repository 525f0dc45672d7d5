package digest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// CommandGenerator runs an external program per request. The transcript is written
// to its stdin and its stdout, trimmed, is the summary. The style and spoiler flag
// are passed as CHATNUFF_SUMMARY_STYLE and CHATNUFF_HAS_SPOILERS.
type CommandGenerator struct {
	Path string
	Args []string
}

// ParseCommand splits a command line on whitespace.
func ParseCommand(line string) (CommandGenerator, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return CommandGenerator{}, errors.New("generator command is empty")
	}
	return CommandGenerator{Path: fields[0], Args: fields[1:]}, nil
}

// Generate implements Generator.
func (g CommandGenerator) Generate(ctx context.Context, req Request) (string, error) {
	cmd := exec.CommandContext(ctx, g.Path, g.Args...)
	cmd.Stdin = strings.NewReader(req.Transcript)
	cmd.Env = append(os.Environ(),
		"CHATNUFF_SUMMARY_STYLE="+string(req.Style),
		"CHATNUFF_HAS_SPOILERS="+strconv.FormatBool(req.HasSpoilers),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("run %s: %w: %s", g.Path, err, msg)
		}
		return "", fmt.Errorf("run %s: %w", g.Path, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
