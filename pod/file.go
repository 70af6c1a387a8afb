package pod

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lakota-db/lakota/lkerr"
)

// FilePOD stores blobs as regular files under root, grounded on the
// original implementation's pod.py FilePOD. Writes go through a temp file
// followed by os.Rename so a reader never observes a partially written
// blob (spec.md's content-addressed blobs are written at most once). Readers
// in this module do not re-check a blob's bytes against its digest, so a
// blob corrupted on disk is returned as it is.
type FilePOD struct {
	root string
}

// NewFile creates a FilePOD rooted at root, creating the directory if
// necessary.
func NewFile(root string) (*FilePOD, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("pod: create root %s: %w", root, err)
	}
	return &FilePOD{root: root}, nil
}

func (p *FilePOD) path(key string) string {
	return filepath.Join(p.root, filepath.FromSlash(key))
}

func (p *FilePOD) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := withRetry(ctx, isTransientFileErr, func() error {
		var readErr error
		data, readErr = os.ReadFile(p.path(key))
		return readErr
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("%w: %s: %v", lkerr.ErrPodIO, key, err)
	}
	return data, nil
}

func (p *FilePOD) Put(ctx context.Context, key string, data []byte) error {
	dst := p.path(key)
	return withRetry(ctx, isTransientFileErr, func() error {
		return p.put(dst, key, data)
	})
}

func (p *FilePOD) put(dst, key string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir for %s: %v", lkerr.ErrPodIO, key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: tempfile for %s: %v", lkerr.ErrPodIO, key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", lkerr.ErrPodIO, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", lkerr.ErrPodIO, key, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", lkerr.ErrPodIO, key, err)
	}
	return nil
}

// isTransientFileErr reports whether err is worth a retry: anything but a
// missing file, which withRetry should surface immediately rather than
// waste attempts on.
func isTransientFileErr(err error) bool {
	return !os.IsNotExist(err)
}

func (p *FilePOD) Delete(_ context.Context, key string) error {
	err := os.Remove(p.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: delete %s: %v", lkerr.ErrPodIO, key, err)
	}
	return nil
}

// Stat returns key's filesystem modification time.
func (p *FilePOD) Stat(_ context.Context, key string) (time.Time, error) {
	info, err := os.Stat(p.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, notFound(key)
		}
		return time.Time{}, fmt.Errorf("%w: stat %s: %v", lkerr.ErrPodIO, key, err)
	}
	return info.ModTime(), nil
}

func (p *FilePOD) List(_ context.Context, prefix string) ([]string, error) {
	dir := p.path(prefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %v", lkerr.ErrPodIO, prefix, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func (p *FilePOD) Walk(_ context.Context, prefix string) ([]string, error) {
	root := p.path(prefix)
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", lkerr.ErrPodIO, prefix, err)
	}
	sort.Strings(out)
	return out, nil
}

func (p *FilePOD) Move(_ context.Context, from, to string) error {
	dst := p.path(to)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir for %s: %v", lkerr.ErrPodIO, to, err)
	}
	if err := os.Rename(p.path(from), dst); err != nil {
		if os.IsNotExist(err) {
			return notFound(from)
		}
		return fmt.Errorf("%w: move %s -> %s: %v", lkerr.ErrPodIO, from, to, err)
	}
	return nil
}

func (p *FilePOD) Sub(name string) Pod {
	return &FilePOD{root: filepath.Join(p.root, filepath.FromSlash(name))}
}
