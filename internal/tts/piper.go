// Package tts renders pronunciation audio with the local Piper engine.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Piper shells out to the piper binary: text on stdin, WAV file out.
type Piper struct {
	bin       string
	model     string
	outputDir string
	timeout   time.Duration
	log       *zap.Logger
}

// NewPiper creates a Piper synthesizer. The voice model file must exist.
func NewPiper(bin, model, outputDir string, timeout time.Duration, log *zap.Logger) (*Piper, error) {
	if _, err := os.Stat(model); err != nil {
		return nil, fmt.Errorf("piper voice model: %w", err)
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tts output dir: %w", err)
	}
	return &Piper{bin: bin, model: model, outputDir: outputDir, timeout: timeout, log: log}, nil
}

// Synthesize renders text to a WAV file at outPath.
func (p *Piper) Synthesize(ctx context.Context, text, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, p.bin, "--model", p.model, "--output_file", outPath)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return fmt.Errorf("piper %q: %w: %s", text, err, msg)
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("piper produced no output for %q", text)
	}
	return nil
}

// Speak renders arbitrary text (a compound name or a listening-quiz script)
// into the output directory and returns the file path. Existing files are
// reused.
func (p *Piper) Speak(ctx context.Context, text string) (string, error) {
	spoken := NormalizePronunciation(text)
	outPath := filepath.Join(p.outputDir, safeFileName(text)+".wav")
	if _, err := os.Stat(outPath); err == nil {
		return outPath, nil
	}
	if err := p.Synthesize(ctx, spoken, outPath); err != nil {
		return "", err
	}
	p.log.Info("speech generated", zap.String("text", text), zap.String("file", outPath))
	return outPath, nil
}

// safeFileName keeps the first 30 characters, alphanumerics only.
func safeFileName(text string) string {
	lower := strings.ToLower(text)
	if len(lower) > 30 {
		lower = lower[:30]
	}
	var b strings.Builder
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
