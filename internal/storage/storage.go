// Package storage writes generated workbooks and error logs to their
// destination: a local directory or an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/config"
)

// ErrInvalidDestination is returned for malformed s3:// destinations.
var ErrInvalidDestination = errors.New("invalid destination")

const s3Scheme = "s3://"

// Sink stores named blobs and reports where they ended up.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (location string, err error)
}

// LocalSink writes into a directory, creating it on first use.
type LocalSink struct {
	Dir string
}

// Put writes data to Dir/name.
func (s LocalSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(s.Dir, name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", target, err)
	}
	return target, nil
}

// ParseS3URL splits "s3://bucket/key" into bucket and key. The key may be
// empty ("s3://bucket" or "s3://bucket/").
func ParseS3URL(raw string) (bucket, key string, err error) {
	if !strings.HasPrefix(raw, s3Scheme) {
		return "", "", fmt.Errorf("%w: %q is not an s3:// URL", ErrInvalidDestination, raw)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(raw, s3Scheme), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %q has no bucket", ErrInvalidDestination, raw)
	}
	return bucket, key, nil
}

// IsS3 reports whether dest names an S3 location.
func IsS3(dest string) bool {
	return strings.HasPrefix(dest, s3Scheme)
}

// Resolve picks the sink for a run and the name to store the workbook
// under.
//
// dest may be:
//   - "s3://bucket/key.xlsx": upload to that exact object.
//   - "s3://bucket/prefix/": upload defaultName under the prefix.
//   - a local path ending in .xlsx: write that file.
//   - a local directory.
//   - "": the configured S3 bucket when one is set, else outputDir.
func Resolve(ctx context.Context, dest string, s3cfg config.S3Config, outputDir, defaultName string) (Sink, string, error) {
	switch {
	case IsS3(dest):
		bucket, key, err := ParseS3URL(dest)
		if err != nil {
			return nil, "", err
		}
		name := defaultName
		prefix := key
		if key != "" && !strings.HasSuffix(key, "/") {
			prefix, name = path.Split(key)
		}
		s3cfg.Bucket = bucket
		s3cfg.Prefix = prefix
		sink, err := NewS3Sink(ctx, s3cfg)
		if err != nil {
			return nil, "", err
		}
		return sink, name, nil

	case dest != "":
		if strings.EqualFold(filepath.Ext(dest), ".xlsx") {
			return LocalSink{Dir: filepath.Dir(dest)}, filepath.Base(dest), nil
		}
		return LocalSink{Dir: dest}, defaultName, nil

	case s3cfg.Bucket != "":
		sink, err := NewS3Sink(ctx, s3cfg)
		if err != nil {
			return nil, "", err
		}
		return sink, defaultName, nil

	default:
		return LocalSink{Dir: outputDir}, defaultName, nil
	}
}
