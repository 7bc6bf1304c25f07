// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"errors"
	"fmt"
	"iter"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// Source produces a sequence of entries for Archiver.
type Source interface {
	// Entries yields entries lazily. An entry may be valid only until the next one is requested.
	Entries() iter.Seq2[Entry, error]
	// IsDir reports whether entries come from a directory tree. It enables root stripping and flattening.
	IsDir() bool
	Close() error
}

// errStopWalk aborts directory walk when consumer stops iteration.
var errStopWalk = errors.New("stop walk")

// DirectorySource walks directory trees. Each entry name starts with base name of its root;
// the root itself is not yielded. Symlinks are reported as symlinks and never followed.
type DirectorySource struct {
	dirs []string
}

// NewDirectorySource creates source for one or more directory trees.
func NewDirectorySource(dirs ...string) *DirectorySource {
	cleaned := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		cleaned = append(cleaned, filepath.Clean(dir))
	}

	return &DirectorySource{dirs: cleaned}
}

// Entries walks every directory in sorted order.
func (s *DirectorySource) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for _, dir := range s.dirs {
			root := filepath.Base(dir)
			stopped := false

			err := godirwalk.Walk(dir, &godirwalk.Options{
				Unsorted: false,
				Callback: func(osPathname string, _ *godirwalk.Dirent) error {
					if osPathname == dir {
						return nil
					}

					rel, err := filepath.Rel(dir, osPathname)
					if err != nil {
						return err
					}

					entry, err := NewFileEntry(root+"/"+filepath.ToSlash(rel), osPathname)
					if err != nil {
						return err
					}

					if !yield(entry, nil) {
						stopped = true
						return errStopWalk
					}

					return nil
				},
			})
			if stopped {
				return
			}

			if err != nil {
				yield(nil, fmt.Errorf("walk %s: %w", dir, err))
				return
			}
		}
	}
}

// IsDir reports true.
func (s *DirectorySource) IsDir() bool { return true }

// Close is no-op.
func (s *DirectorySource) Close() error { return nil }

// FileSource yields one filesystem entry.
type FileSource struct {
	name string
	path string
}

// NewFileSource creates source for one file stored under its base name.
func NewFileSource(path string) *FileSource {
	return NewNamedFileSource(filepath.Base(path), path)
}

// NewNamedFileSource creates source for one file stored under given archive name.
func NewNamedFileSource(name string, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

func (s *FileSource) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		entry, err := NewFileEntry(s.name, s.path)
		yield(entry, err)
	}
}

func (s *FileSource) IsDir() bool  { return false }
func (s *FileSource) Close() error { return nil }

// EntrySource yields a fixed list of entries.
type EntrySource struct {
	entries []Entry
}

// NewEntrySource creates source over prepared entries.
func NewEntrySource(entries ...Entry) *EntrySource {
	return &EntrySource{entries: entries}
}

func (s *EntrySource) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for _, entry := range s.entries {
			if entry == nil {
				yield(nil, ErrNilSource)
				return
			}

			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (s *EntrySource) IsDir() bool  { return false }
func (s *EntrySource) Close() error { return nil }

// OpenArchiveSource opens existing archive as entry source for repackaging.
// Format is detected by file name. The source reports IsDir true, so root stripping
// and flattening apply to its entries. Callers must Close it.
func OpenArchiveSource(path string) (Source, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	return openSource(path, format)
}
