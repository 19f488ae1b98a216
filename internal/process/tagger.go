package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
)

// DefaultTagTimeout bounds a single tagger invocation
const DefaultTagTimeout = 5 * time.Minute

// Tagger converts a document before extraction, e.g. adding part-of-speech and lemma markup.
type Tagger interface {
	Tag(ctx context.Context, input []byte) ([]byte, error)
}

// ExecTagger runs an external command, writing the document to its stdin and reading the
// tagged document from its stdout.
type ExecTagger struct {
	Command string
	Args    []string
	Timeout time.Duration
}

var _ Tagger = (*ExecTagger)(nil)

// NewExecTagger builds a tagger from a "tag" process step. The command parameter is split
// on whitespace; the optional timeout parameter is a Go duration.
func NewExecTagger(cfg config.ProcessStep) (*ExecTagger, error) {
	if cfg.Method != "tag" {
		return nil, errors.NewConfigurationError("processStep", cfg.Method, "method", "not a tag step")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	parts := strings.Fields(cfg.Params["command"])
	if len(parts) == 0 {
		return nil, errors.NewMissingAttributeError("processStep", cfg.Method, "command")
	}
	t := &ExecTagger{Command: parts[0], Args: parts[1:], Timeout: DefaultTagTimeout}
	if raw := cfg.Param("timeout", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, errors.NewConfigurationError("processStep", cfg.Method, "timeout",
				fmt.Sprintf("invalid duration '%s'", raw))
		}
		t.Timeout = d
	}
	return t, nil
}

// Tag runs the command once
func (t *ExecTagger) Tag(ctx context.Context, input []byte) ([]byte, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, t.Command, t.Args...) // #nosec G204 -- command comes from the operator's format file
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("tagger %s failed: %w: %s", t.Command, err, msg)
		}
		return nil, fmt.Errorf("tagger %s failed: %w", t.Command, err)
	}
	return stdout.Bytes(), nil
}
