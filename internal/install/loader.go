package install

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/mcdonaldj/esar/internal/ports"
)

// maxParallelOpens bounds how many archives are opened at once.
const maxParallelOpens = 4

// ArchiveSource is one opened archive plus the path it was opened from.
type ArchiveSource struct {
	Path string
	File ports.File
	Size int64
}

// Batch is the Loader's output: one handle and one display path per
// requested archive, both in request order.
type Batch struct {
	Sources []ArchiveSource
	Paths   []string
}

// Close releases every handle still held by the batch.
func (b *Batch) Close() {
	for i := range b.Sources {
		if b.Sources[i].File != nil {
			_ = b.Sources[i].File.Close()
			b.Sources[i].File = nil
		}
	}
}

// Loader opens candidate archives.
type Loader struct {
	fs ports.FileSystem
}

// NewLoader creates a Loader reading through fs.
func NewLoader(fs ports.FileSystem) *Loader {
	return &Loader{fs: fs}
}

// Load opens every path and renders its display path. Opening and
// rendering run as two joined tasks. Any open failure fails the whole
// batch and every handle opened so far is closed again.
func (l *Loader) Load(ctx context.Context, paths []string) (*Batch, error) {
	if len(paths) == 0 {
		return nil, ErrNoArchives
	}

	batch := &Batch{
		Sources: make([]ArchiveSource, len(paths)),
		Paths:   make([]string, len(paths)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.openAll(gctx, paths, batch.Sources)
	})
	g.Go(func() error {
		for i, p := range paths {
			batch.Paths[i] = displayPath(p)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		batch.Close()
		return nil, err
	}
	return batch, nil
}

// openAll fills sources[i] for paths[i]. Each slot is written by exactly
// one goroutine, so no locking is needed.
func (l *Loader) openAll(ctx context.Context, paths []string, sources []ArchiveSource) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelOpens)

	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := l.open(p)
			if err != nil {
				return err
			}
			sources[i] = src
			return nil
		})
	}
	return g.Wait()
}

func (l *Loader) open(path string) (ArchiveSource, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return ArchiveSource{}, fmt.Errorf("opening %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return ArchiveSource{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return ArchiveSource{}, fmt.Errorf("%s is a directory, not an archive", path)
	}

	return ArchiveSource{Path: path, File: f, Size: info.Size()}, nil
}

// displayPath renders a path the way it is shown to the user.
func displayPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
