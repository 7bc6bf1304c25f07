// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package generator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// layoutEntry is one file of a layout, filled either from inline content or from a file.
type layoutEntry struct {
	name    string
	content string
	file    string
}

// Layout describes files materialized under one directory.
type Layout struct {
	dir     string
	entries []layoutEntry
}

// NewLayout creates empty layout rooted at dir.
func NewLayout(dir string) *Layout {
	return &Layout{dir: dir}
}

// Entry adds file name (slash separated, relative to layout dir) with inline content.
func (l *Layout) Entry(name string, content string) *Layout {
	l.entries = append(l.entries, layoutEntry{name: name, content: content})
	return l
}

// FileEntry adds file name copied from existing file at path.
func (l *Layout) FileEntry(name string, path string) *Layout {
	l.entries = append(l.entries, layoutEntry{name: name, file: path})
	return l
}

// Dir returns layout root directory.
func (l *Layout) Dir() string {
	return l.dir
}

// Build writes every entry under layout dir, replacing existing files.
func (l *Layout) Build() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create layout dir: %w", err)
	}

	for _, entry := range l.entries {
		target := filepath.Join(l.dir, filepath.FromSlash(entry.name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent for %s: %w", entry.name, err)
		}

		if entry.file == "" {
			if err := os.WriteFile(target, []byte(entry.content), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", entry.name, err)
			}
			continue
		}

		if err := copyFile(entry.file, target); err != nil {
			return fmt.Errorf("copy %s: %w", entry.name, err)
		}
	}

	return nil
}

// copyFile copies src into dst, truncating dst.
func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if out != nil {
			_ = out.Close()
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}
	out = nil

	return nil
}
