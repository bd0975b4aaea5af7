// Package assets publishes catalog images and audio to S3 and checks that
// published URLs still resolve.
package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"chemi/internal/catalog"
)

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".json": "application/json",
}

// Uploader copies local asset files to an S3 bucket with public URLs.
type Uploader struct {
	client *s3.Client
	bucket string
	region string
	log    *zap.Logger
}

// NewUploader creates an uploader using the default AWS credential chain.
func NewUploader(ctx context.Context, bucket, region string, log *zap.Logger) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Uploader{client: s3.NewFromConfig(cfg), bucket: bucket, region: region, log: log}, nil
}

// PublicURL returns the virtual-hosted URL for a key.
func (u *Uploader) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}

// UploadFile puts one local file at the given key.
func (u *Uploader) UploadFile(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	ct := contentTypes[strings.ToLower(filepath.Ext(path))]
	if ct == "" {
		ct = "application/octet-stream"
	}
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(ct),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// UploadDir uploads every regular file under dir, preserving the relative
// layout below prefix ("data/audio/elements/h.wav" -> "audio/elements/h.wav").
func (u *Uploader) UploadDir(ctx context.Context, dir, prefix string) (int, error) {
	var n int
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		key := prefix + "/" + filepath.ToSlash(rel)
		if err := u.UploadFile(ctx, path, key); err != nil {
			return err
		}
		u.log.Info("uploaded", zap.String("key", key))
		n++
		return ctx.Err()
	})
	return n, err
}

// RewriteCatalog rewrites local asset paths in the catalog JSON to public S3
// URLs under the images/ and audio/ prefixes, writing the result to outPath.
func (u *Uploader) RewriteCatalog(jsonPath, outPath string) error {
	records, err := catalog.LoadJSON(jsonPath)
	if err != nil {
		return err
	}
	for i := range records {
		records[i].ImagePath = u.rewrite(records[i].ImagePath, "images")
		records[i].AudioPath = u.rewrite(records[i].AudioPath, "audio")
	}
	if err := catalog.SaveJSON(outPath, records); err != nil {
		return err
	}
	u.log.Info("catalog rewritten", zap.String("file", outPath), zap.Int("records", len(records)))
	return nil
}

// Element audio lives one level deeper than compound audio, so the last two
// path segments are kept when the parent directory is elements/.
func (u *Uploader) rewrite(p, prefix string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	key := prefix + "/" + filepath.Base(p)
	if filepath.Base(filepath.Dir(p)) == "elements" {
		key = prefix + "/elements/" + filepath.Base(p)
	}
	return u.PublicURL(key)
}
