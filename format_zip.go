// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"fmt"
	"io"
	"io/fs"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
)

// zipCreatorUnix is "version made by" host value for Unix.
const zipCreatorUnix = 3

// zipWriter encodes ZIP stream.
type zipWriter struct {
	zw *zip.Writer
}

// newZipWriter creates ZIP writer over w.
func newZipWriter(w io.Writer) *zipWriter {
	return &zipWriter{zw: zip.NewWriter(w)}
}

func (w *zipWriter) wrap(name string, src Entry, executable bool) *wireEntry {
	return wrapEntry(name, src, executable)
}

// write encodes one entry. Timestamps are stored as UTC wall clock in DOS fields
// plus the extended timestamp field. Unknown modes leave format default attributes.
func (w *zipWriter) write(e *wireEntry) error {
	hdr := &zip.FileHeader{
		Name:     e.name,
		Method:   zip.Deflate,
		Modified: e.modTime.UTC(),
	}

	var payload io.Reader
	switch e.kind {
	case KindDirectory:
		hdr.Method = zip.Store
		if e.mode.Known() {
			hdr.SetMode(fs.ModeDir | e.mode.FileMode())
		}
	case KindSymlink:
		mode := e.mode
		if !mode.Known() {
			mode = 0o777
		}
		hdr.SetMode(fs.ModeSymlink | mode.FileMode())
		payload = strings.NewReader(e.linkTarget)
	case KindHardLink:
		return fmt.Errorf("%w: hard link %s cannot be stored in zip", ErrUnsupportedEntry, e.name)
	default:
		if e.mode.Known() {
			hdr.SetMode(e.mode.FileMode())
		}
	}

	fw, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("write header %s: %w", e.name, err)
	}

	switch {
	case payload != nil:
		_, err = copyPayload(fw, payload)
	case e.kind == KindFile:
		_, err = e.src.WriteTo(fw)
	}
	if err != nil {
		return fmt.Errorf("write payload %s: %w", e.name, err)
	}

	return nil
}

// Close writes central directory.
func (w *zipWriter) Close() error {
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}

	return nil
}

// zipSource reads entries from ZIP central directory.
type zipSource struct {
	zr   *zip.ReadCloser
	path string
}

// openZipSource opens ZIP archive file.
func openZipSource(path string) (*zipSource, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	return &zipSource{zr: zr, path: path}, nil
}

// Entries yields ZIP entries in central directory order.
func (s *zipSource) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for _, f := range s.zr.File {
			if !yield(&zipEntry{f: f}, nil) {
				return
			}
		}
	}
}

func (s *zipSource) IsDir() bool { return true }

func (s *zipSource) Close() error {
	if err := s.zr.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return nil
}

// zipEntry exposes one ZIP file header. Entries stay readable while source is open.
type zipEntry struct {
	f *zip.File

	targetOnce sync.Once
	target     string
}

func (e *zipEntry) Name() string { return e.f.Name }

func (e *zipEntry) IsDir() bool {
	return strings.HasSuffix(e.f.Name, "/") || e.f.Mode().IsDir()
}

func (e *zipEntry) IsSymlink() bool {
	return e.f.Mode()&fs.ModeSymlink != 0
}

func (e *zipEntry) IsHardLink() bool { return false }

// LinkTarget reads symlink payload on first use; unreadable payload yields empty target.
func (e *zipEntry) LinkTarget() string {
	if !e.IsSymlink() {
		return ""
	}

	e.targetOnce.Do(func() {
		rc, err := e.f.Open()
		if err != nil {
			return
		}
		defer func() { _ = rc.Close() }()

		var b strings.Builder
		if _, err := copyPayload(&b, rc); err != nil {
			return
		}

		e.target = b.String()
	})

	return e.target
}

func (e *zipEntry) Size() int64 {
	if e.IsDir() || e.IsSymlink() {
		return 0
	}

	return int64(e.f.UncompressedSize64) //nolint:gosec // zip64 sizes above int64 are not representable on disk
}

// Mode reports POSIX bits for entries made on Unix hosts and ModeUnknown otherwise.
func (e *zipEntry) Mode() Mode {
	if e.f.CreatorVersion>>8 != zipCreatorUnix {
		return ModeUnknown
	}

	return modeFromFileMode(e.f.Mode())
}

func (e *zipEntry) ModTime() time.Time { return e.f.Modified }

func (e *zipEntry) Open() (io.ReadCloser, error) {
	if e.IsDir() || e.IsSymlink() {
		return emptyReadCloser(), nil
	}

	rc, err := e.f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", e.f.Name, err)
	}

	return rc, nil
}

func (e *zipEntry) WriteTo(w io.Writer) (int64, error) {
	return writeEntryTo(e, w)
}
