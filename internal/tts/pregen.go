package tts

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"chemi/internal/domain"
)

// Summary reports the outcome of a pre-generation run.
type Summary struct {
	Generated int
	Skipped   int
	Failed    int
}

// Pregenerate renders pronunciation audio for every catalog record into
// audioDir: elements under elements/<doc_id>.wav, compounds at
// <doc_id>.wav. Existing files are skipped so the run is resumable.
func (p *Piper) Pregenerate(ctx context.Context, records []domain.Compound, audioDir string) (Summary, error) {
	if err := os.MkdirAll(filepath.Join(audioDir, "elements"), 0o755); err != nil {
		return Summary{}, err
	}
	var sum Summary
	for _, r := range records {
		outPath := filepath.Join(audioDir, r.DocID+".wav")
		if r.Type == "element" {
			outPath = filepath.Join(audioDir, "elements", r.DocID+".wav")
		}
		if _, err := os.Stat(outPath); err == nil {
			sum.Skipped++
			continue
		}
		if err := p.Synthesize(ctx, NormalizePronunciation(r.IUPACName), outPath); err != nil {
			p.log.Warn("tts failed", zap.String("doc_id", r.DocID), zap.Error(err))
			sum.Failed++
			continue
		}
		p.log.Info("tts generated", zap.String("doc_id", r.DocID), zap.String("file", outPath))
		sum.Generated++
		if err := ctx.Err(); err != nil {
			return sum, err
		}
	}
	return sum, nil
}
