package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"shareledger/internal/core"
)

const (
	OverviewFile = "overview.md"
	IndexFile    = "README.md"
)

// FileName is the report file name of a period.
func FileName(period string) string {
	return period + "-report.md"
}

// Writer renders reports into a directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Dir() string { return w.dir }

// WritePeriod renders and writes <period>-report.md.
func (w *Writer) WritePeriod(s core.PeriodSummary) (string, error) {
	md, err := RenderPeriod(s)
	if err != nil {
		return "", err
	}
	return w.write(FileName(s.Period), md)
}

// WriteOverview renders and writes overview.md.
func (w *Writer) WriteOverview(o core.OverviewSummary) (string, error) {
	md, err := RenderOverview(o)
	if err != nil {
		return "", err
	}
	return w.write(OverviewFile, md)
}

// WriteIndex regenerates README.md from the period reports on disk.
func (w *Writer) WriteIndex() (string, error) {
	matches, err := filepath.Glob(filepath.Join(w.dir, "*-report.md"))
	if err != nil {
		return "", fmt.Errorf("list reports: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)

	md, err := RenderIndex(names)
	if err != nil {
		return "", err
	}
	return w.write(IndexFile, md)
}

// write replaces name atomically so readers never see a partial report.
func (w *Writer) write(name, content string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}
	tmp, err := os.CreateTemp(w.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	path := filepath.Join(w.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}
