package assets

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"chemi/internal/domain"
)

// Report summarizes a URL verification run.
type Report struct {
	Checked int
	OK      int
	Missing []string
}

// Verifier HEAD-checks the asset URLs referenced by catalog records.
type Verifier struct {
	client *http.Client
	log    *zap.Logger
}

// NewVerifier creates a verifier. A nil client gets a 10s-timeout default.
func NewVerifier(client *http.Client, log *zap.Logger) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{client: client, log: log}
}

// Run checks every http(s) image and audio URL in records. Local paths are
// skipped; they are covered by the file system, not the bucket.
func (v *Verifier) Run(ctx context.Context, records []domain.Compound) (Report, error) {
	var rep Report
	for _, r := range records {
		for _, u := range []string{r.ImagePath, r.AudioPath} {
			if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
				continue
			}
			rep.Checked++
			if v.exists(ctx, u) {
				rep.OK++
			} else {
				v.log.Warn("asset missing", zap.String("doc_id", r.DocID), zap.String("url", u))
				rep.Missing = append(rep.Missing, u)
			}
			if err := ctx.Err(); err != nil {
				return rep, err
			}
		}
	}
	return rep, nil
}

// Clear blanks every image and audio reference listed in missing, returning
// the number of fields cleared.
func Clear(records []domain.Compound, missing []string) int {
	dead := make(map[string]bool, len(missing))
	for _, u := range missing {
		dead[u] = true
	}
	var n int
	for i := range records {
		if dead[records[i].ImagePath] {
			records[i].ImagePath = ""
			n++
		}
		if dead[records[i].AudioPath] {
			records[i].AudioPath = ""
			n++
		}
	}
	return n
}

func (v *Verifier) exists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
