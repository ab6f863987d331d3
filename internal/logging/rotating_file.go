package logging

import (
	"os"
	"sync"
)

// rotatingFile appends to path until the next write would pass maxBytes.
// It then moves the file to path.1, replacing any older copy, or simply
// starts over when keepOld is false.
type rotatingFile struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	keepOld  bool
	f        *os.File
	written  int64
}

func openRotatingFile(path string, maxMB int, keepOld bool) (*rotatingFile, error) {
	if maxMB <= 0 {
		maxMB = 10
	}
	r := &rotatingFile{path: path, maxBytes: int64(maxMB) << 20, keepOld: keepOld}
	if err := r.reopen(os.O_APPEND); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		if err := r.reopen(os.O_APPEND); err != nil {
			return 0, err
		}
	}
	if r.written > 0 && r.written+int64(len(p)) > r.maxBytes {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.f.Write(p)
	r.written += int64(n)
	return n, err
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

func (r *rotatingFile) rotate() error {
	_ = r.f.Close()
	r.f = nil
	if r.keepOld {
		if err := os.Rename(r.path, r.path+".1"); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return r.reopen(os.O_TRUNC)
}

func (r *rotatingFile) reopen(mode int) error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f = f
	r.written = info.Size()
	return nil
}
