// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// copyBufferSize is temporary buffer used by streaming payload copy.
const copyBufferSize = 64 * 1024

// copyBufferPool reuses payload copy buffers between entries.
var copyBufferPool = sync.Pool{
	New: func() any {
		return new([copyBufferSize]byte)
	},
}

// Entry is one logical item inside an archive or on a filesystem.
// Names use "/" separators; directory names produced by archives carry a trailing "/".
type Entry interface {
	// Name is archive-relative entry path.
	Name() string
	IsDir() bool
	IsSymlink() bool
	IsHardLink() bool
	// LinkTarget is symlink target (relative) or hard-link source (archive-relative).
	LinkTarget() string
	// Size is payload length; zero for directories, symlinks and hard links.
	Size() int64
	// Mode is POSIX permission bits or ModeUnknown.
	Mode() Mode
	ModTime() time.Time
	// Open returns entry payload stream.
	Open() (io.ReadCloser, error)
	// WriteTo copies entry payload into w.
	WriteTo(w io.Writer) (int64, error)
}

// copyPayload copies src into dst with pooled buffer.
func copyPayload(dst io.Writer, src io.Reader) (int64, error) {
	arr := copyBufferPool.Get().(*[copyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed-size buffers
	defer copyBufferPool.Put(arr)

	return io.CopyBuffer(dst, src, arr[:])
}

// writeEntryTo opens entry and copies its payload into w.
func writeEntryTo(e Entry, w io.Writer) (int64, error) {
	rc, err := e.Open()
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	return copyPayload(w, rc)
}

// emptyReadCloser returns payload stream for entries without content.
func emptyReadCloser() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(nil))
}

// fileEntry is backed by a real file, directory or symlink on disk.
type fileEntry struct {
	modTime    time.Time
	name       string
	path       string
	linkTarget string
	size       int64
	mode       Mode
	dir        bool
	symlink    bool
}

// NewFileEntry describes filesystem item at path under archive name.
// Symlinks are not followed.
func NewFileEntry(name string, path string) (Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	e := &fileEntry{
		name:    name,
		path:    path,
		modTime: info.ModTime(),
		mode:    modeFromFileMode(info.Mode()),
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return nil, fmt.Errorf("read link %s: %w", path, err)
		}

		e.symlink = true
		e.linkTarget = target
	case info.IsDir():
		e.dir = true
	default:
		e.size = info.Size()
	}

	return e, nil
}

func (e *fileEntry) Name() string       { return e.name }
func (e *fileEntry) IsDir() bool        { return e.dir }
func (e *fileEntry) IsSymlink() bool    { return e.symlink }
func (e *fileEntry) IsHardLink() bool   { return false }
func (e *fileEntry) LinkTarget() string { return e.linkTarget }
func (e *fileEntry) Size() int64        { return e.size }
func (e *fileEntry) Mode() Mode         { return e.mode }
func (e *fileEntry) ModTime() time.Time { return e.modTime }

// Open returns file content; directories and symlinks have no payload.
func (e *fileEntry) Open() (io.ReadCloser, error) {
	if e.dir || e.symlink {
		return emptyReadCloser(), nil
	}

	f, err := os.Open(e.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", e.path, err)
	}

	return f, nil
}

func (e *fileEntry) WriteTo(w io.Writer) (int64, error) {
	return writeEntryTo(e, w)
}

// dirEntry is a synthetic directory used to materialize missing parents.
type dirEntry struct {
	name string
}

// NewDirectoryEntry creates synthetic directory entry. Name must end with "/".
func NewDirectoryEntry(name string) (Entry, error) {
	if !strings.HasSuffix(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrDirectoryEntryName, name)
	}

	return &dirEntry{name: name}, nil
}

func (e *dirEntry) Name() string                 { return e.name }
func (e *dirEntry) IsDir() bool                  { return true }
func (e *dirEntry) IsSymlink() bool              { return false }
func (e *dirEntry) IsHardLink() bool             { return false }
func (e *dirEntry) LinkTarget() string           { return "" }
func (e *dirEntry) Size() int64                  { return 0 }
func (e *dirEntry) Mode() Mode                   { return ModeUnknown }
func (e *dirEntry) ModTime() time.Time           { return time.Time{} }
func (e *dirEntry) Open() (io.ReadCloser, error) { return emptyReadCloser(), nil }

func (e *dirEntry) WriteTo(io.Writer) (int64, error) {
	return 0, nil
}

// memEntry keeps its payload in memory.
type memEntry struct {
	modTime    time.Time
	name       string
	linkTarget string
	data       []byte
	mode       Mode
	dir        bool
	symlink    bool
	hardLink   bool
}

// NewStringEntry creates in-memory file entry with unknown mode.
func NewStringEntry(name string, content string) Entry {
	return NewBytesEntry(name, []byte(content), ModeUnknown)
}

// NewBytesEntry creates in-memory file entry with given mode (ModeUnknown for format default).
func NewBytesEntry(name string, data []byte, mode Mode) Entry {
	return &memEntry{
		name:    name,
		data:    data,
		mode:    mode,
		modTime: time.Now(),
	}
}

// NewSymlinkEntry creates in-memory symlink entry pointing at target.
func NewSymlinkEntry(name string, target string) Entry {
	return &memEntry{
		name:       name,
		linkTarget: target,
		symlink:    true,
		mode:       0o777,
		modTime:    time.Now(),
	}
}

// detachEntry copies entry state and payload into memory, so it outlives its backing stream.
func detachEntry(e Entry) (Entry, error) {
	out := &memEntry{
		name:       e.Name(),
		linkTarget: e.LinkTarget(),
		mode:       e.Mode(),
		modTime:    e.ModTime(),
		dir:        e.IsDir(),
		symlink:    e.IsSymlink(),
		hardLink:   e.IsHardLink(),
	}

	if out.dir || out.symlink || out.hardLink {
		return out, nil
	}

	var buf bytes.Buffer
	if size := e.Size(); size > 0 {
		buf.Grow(int(size))
	}

	if _, err := e.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("buffer entry %s: %w", e.Name(), err)
	}

	out.data = buf.Bytes()
	return out, nil
}

func (e *memEntry) Name() string       { return e.name }
func (e *memEntry) IsDir() bool        { return e.dir }
func (e *memEntry) IsSymlink() bool    { return e.symlink }
func (e *memEntry) IsHardLink() bool   { return e.hardLink }
func (e *memEntry) LinkTarget() string { return e.linkTarget }
func (e *memEntry) Size() int64        { return int64(len(e.data)) }
func (e *memEntry) Mode() Mode         { return e.mode }
func (e *memEntry) ModTime() time.Time { return e.modTime }

func (e *memEntry) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

func (e *memEntry) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e.data)
	return int64(n), err
}

// streamEntry is implemented by entries valid only until their source advances.
type streamEntry interface {
	Entry
	streamBacked()
}
