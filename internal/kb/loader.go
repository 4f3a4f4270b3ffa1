// Package kb loads a directory of markdown files into the shared knowledge
// base store.
package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/memohai/linerag/internal/gemini"
	"github.com/memohai/linerag/internal/media"
	"github.com/memohai/linerag/internal/registry"
)

// ErrNotDirectory is returned when the source path is not a directory.
var ErrNotDirectory = errors.New("kb: source is not a directory")

// Stores resolves the knowledge base store.
type Stores interface {
	EnsureNamed(ctx context.Context, displayName string) (registry.Handle, error)
}

// Documents is the upstream document API.
type Documents interface {
	ListDocuments(ctx context.Context, store string) ([]gemini.Document, error)
	UploadAndWait(ctx context.Context, store string, doc gemini.Upload) error
}

// Failure is one file that could not be uploaded.
type Failure struct {
	File string
	Err  error
}

// Report summarizes one Upload run.
type Report struct {
	Store    string
	Uploaded []string
	Skipped  []string
	Failed   []Failure
}

type Loader struct {
	storeName string
	maxBytes  int64
	stores    Stores
	docs      Documents
	logger    *slog.Logger
}

func NewLoader(log *slog.Logger, storeName string, maxBytes int64, stores Stores, docs Documents) *Loader {
	if log == nil {
		log = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = media.MaxDocumentBytes
	}
	return &Loader{
		storeName: storeName,
		maxBytes:  maxBytes,
		stores:    stores,
		docs:      docs,
		logger:    log.With(slog.String("service", "kb")),
	}
}

// Upload indexes every markdown file in dir that the store does not hold
// yet, matching on display name. A failing file does not stop the run.
func (l *Loader) Upload(ctx context.Context, dir string) (Report, error) {
	files, err := markdownFiles(dir)
	if err != nil {
		return Report{}, err
	}
	handle, err := l.stores.EnsureNamed(ctx, l.storeName)
	if err != nil {
		return Report{}, fmt.Errorf("ensure knowledge base store: %w", err)
	}
	report := Report{Store: handle.StoreName}

	existing, err := l.docs.ListDocuments(ctx, handle.StoreName)
	if err != nil {
		return report, fmt.Errorf("list knowledge base documents: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		seen[d.DisplayName] = struct{}{}
	}

	for _, path := range files {
		name := filepath.Base(path)
		if _, ok := seen[name]; ok {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		if err := l.uploadFile(ctx, handle.StoreName, path, name); err != nil {
			l.logger.Warn("knowledge base upload failed", slog.String("file", name), slog.Any("error", err))
			report.Failed = append(report.Failed, Failure{File: name, Err: err})
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			continue
		}
		seen[name] = struct{}{}
		report.Uploaded = append(report.Uploaded, name)
		l.logger.Info("knowledge base file uploaded", slog.String("file", name))
	}
	return report, nil
}

func (l *Loader) uploadFile(ctx context.Context, store, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := media.ReadAllWithLimit(f, l.maxBytes)
	if err != nil {
		return err
	}
	return l.docs.UploadAndWait(ctx, store, gemini.Upload{
		DisplayName: name,
		MIMEType:    "text/plain",
		Data:        data,
	})
}

// markdownFiles lists the regular *.md files directly under dir, skipping
// hidden files and AppleDouble "._" entries, sorted by name.
func markdownFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "._") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".md") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
