// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// cachingFile stages output in temp file next to target and replaces target
// only when content differs, so unchanged files keep their inode and mtime.
type cachingFile struct {
	tmp    *os.File
	target string
	n      int64
}

// createCachingFile opens staging file for target.
func createCachingFile(target string) (*cachingFile, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp for %s: %w", target, err)
	}

	return &cachingFile{tmp: tmp, target: target}, nil
}

func (c *cachingFile) Write(p []byte) (int, error) {
	n, err := c.tmp.Write(p)
	c.n += int64(n)
	return n, err
}

// commit moves staged content into place. It reports false when target already had identical content.
func (c *cachingFile) commit() (bool, error) {
	tmpPath := c.tmp.Name()
	if err := c.tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return false, fmt.Errorf("close %s: %w", c.target, err)
	}

	same, err := sameFileContent(tmpPath, c.target, c.n)
	if err != nil {
		_ = os.Remove(tmpPath)
		return false, err
	}

	if same {
		if err := os.Remove(tmpPath); err != nil {
			return false, fmt.Errorf("remove temp for %s: %w", c.target, err)
		}

		return false, nil
	}

	if err := os.Rename(tmpPath, c.target); err != nil {
		_ = os.Remove(tmpPath)
		return false, fmt.Errorf("replace %s: %w", c.target, err)
	}

	return true, nil
}

// abort drops staged content.
func (c *cachingFile) abort() {
	tmpPath := c.tmp.Name()
	_ = c.tmp.Close()
	_ = os.Remove(tmpPath)
}

// sameFileContent reports whether existing regular file target has exactly staged content.
func sameFileContent(staged string, target string, size int64) (bool, error) {
	info, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", target, err)
	}

	if !info.Mode().IsRegular() || info.Size() != size {
		return false, nil
	}

	a, err := os.Open(staged)
	if err != nil {
		return false, fmt.Errorf("open temp for %s: %w", target, err)
	}
	defer func() { _ = a.Close() }()

	b, err := os.Open(target)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", target, err)
	}
	defer func() { _ = b.Close() }()

	bufA := make([]byte, copyBufferSize)
	bufB := make([]byte, copyBufferSize)
	for {
		nA, errA := io.ReadFull(a, bufA)
		nB, errB := io.ReadFull(b, bufB)
		if nA != nB || !bytes.Equal(bufA[:nA], bufB[:nB]) {
			return false, nil
		}

		doneA := errors.Is(errA, io.EOF) || errors.Is(errA, io.ErrUnexpectedEOF)
		doneB := errors.Is(errB, io.EOF) || errors.Is(errB, io.ErrUnexpectedEOF)
		if errA != nil && !doneA {
			return false, fmt.Errorf("read temp for %s: %w", target, errA)
		}
		if errB != nil && !doneB {
			return false, fmt.Errorf("read %s: %w", target, errB)
		}

		if doneA || doneB {
			return doneA && doneB, nil
		}
	}
}
