package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"asnlookup/internal/rangeindex"
)

// FileSource reads the line-oriented dataset from a local file. Its version
// is the file's modification time and size.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) String() string {
	return "file:" + s.path
}

func (s *FileSource) Version(_ context.Context) (Version, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return Version{}, fmt.Errorf("source: stat %s: %w", s.path, err)
	}
	if info.IsDir() {
		return Version{}, fmt.Errorf("source: %s is a directory", s.path)
	}
	return Version{Stamp: info.ModTime(), Size: info.Size()}, nil
}

func (s *FileSource) Load(ctx context.Context, idx rangeindex.Index) (rangeindex.LoadStats, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return rangeindex.LoadStats{}, fmt.Errorf("source: open %s: %w", s.path, err)
	}
	defer file.Close()

	return rangeindex.Load(&contextReader{ctx: ctx, r: file}, idx, s.path)
}

// contextReader aborts a long read once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
