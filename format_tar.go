// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ustarNameLimit is longest name stored without prefix split in ustar header.
const ustarNameLimit = 100

// tarWriter encodes TAR stream with optional compression layer.
type tarWriter struct {
	tw *tar.Writer
	// compressor is closed after TAR trailer; nil for plain TAR.
	compressor io.Closer
	hardLinks  *Selector
	// firstSeen maps base name to final path of its first hard-link candidate.
	firstSeen map[string]string
	longNames bool
}

// newTarWriter creates TAR writer with compression selected by format.
func newTarWriter(w io.Writer, format Format, cfg writerConfig) (*tarWriter, error) {
	out := &tarWriter{
		hardLinks: cfg.hardLinks,
		longNames: cfg.longNames,
		firstSeen: make(map[string]string),
	}

	switch format {
	case FormatTar:
		out.tw = tar.NewWriter(w)
	case FormatTarGzip:
		gzw := gzip.NewWriter(w)
		out.compressor = gzw
		out.tw = tar.NewWriter(gzw)
	case FormatTarXz:
		xzw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create xz writer: %w", err)
		}
		out.compressor = xzw
		out.tw = tar.NewWriter(xzw)
	case FormatTarZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		out.compressor = enc
		out.tw = tar.NewWriter(enc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	return out, nil
}

func (w *tarWriter) wrap(name string, src Entry, executable bool) *wireEntry {
	return wrapEntry(name, src, executable)
}

// write encodes one entry. Regular files selected for hard-link dedup whose base name
// was already written become link records pointing at the first occurrence.
func (w *tarWriter) write(e *wireEntry) error {
	if e.kind == KindFile && w.hardLinks != nil && w.hardLinks.Include(e.name) {
		base := baseName(e.name)
		if first, ok := w.firstSeen[base]; ok {
			e.kind = KindHardLink
			e.linkTarget = first
			e.size = 0
		} else {
			w.firstSeen[base] = e.name
		}
	}

	hdr := &tar.Header{
		Name:    e.name,
		ModTime: e.modTime.Truncate(time.Second),
		Mode:    int64(tarMode(e)),
	}
	if !w.longNames {
		hdr.Format = tar.FormatUSTAR
	}

	switch e.kind {
	case KindDirectory:
		hdr.Typeflag = tar.TypeDir
	case KindSymlink:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = e.linkTarget
	case KindHardLink:
		hdr.Typeflag = tar.TypeLink
		hdr.Linkname = e.linkTarget
	default:
		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.size
	}

	if err := w.tw.WriteHeader(hdr); err != nil {
		if !w.longNames && (len(hdr.Name) > ustarNameLimit || len(hdr.Linkname) > ustarNameLimit) {
			return fmt.Errorf("%w: %s: %w", ErrLongEntryName, e.name, err)
		}

		return fmt.Errorf("write header %s: %w", e.name, err)
	}

	if hdr.Typeflag != tar.TypeReg {
		return nil
	}

	if _, err := e.src.WriteTo(w.tw); err != nil {
		return fmt.Errorf("write payload %s: %w", e.name, err)
	}

	return nil
}

// tarMode returns stored mode or format default for unknown modes.
func tarMode(e *wireEntry) Mode {
	if e.mode.Known() {
		return e.mode & modePerm
	}

	switch e.kind {
	case KindDirectory:
		return DefaultDirMode
	case KindSymlink:
		return 0o777
	default:
		return DefaultFileMode
	}
}

// Close writes TAR trailer and flushes compression layer.
func (w *tarWriter) Close() error {
	if err := w.tw.Close(); err != nil {
		if w.compressor != nil {
			_ = w.compressor.Close()
		}

		return fmt.Errorf("close tar: %w", err)
	}

	if w.compressor != nil {
		if err := w.compressor.Close(); err != nil {
			return fmt.Errorf("close compressor: %w", err)
		}
	}

	return nil
}

// tarSource reads entries from TAR stream.
type tarSource struct {
	f      *os.File
	tr     *tar.Reader
	closer io.Closer
	path   string
}

// openTarSource opens TAR archive file with decompression selected by format.
func openTarSource(path string, format Format) (*tarSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	r, closer, err := newTarDecompressor(bufio.NewReader(f), format)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	return &tarSource{
		f:      f,
		tr:     tar.NewReader(r),
		closer: closer,
		path:   path,
	}, nil
}

// newTarDecompressor wraps r with decompression reader for format.
func newTarDecompressor(r io.Reader, format Format) (io.Reader, io.Closer, error) {
	switch format {
	case FormatTar:
		return r, nil, nil
	case FormatTarGzip:
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return gzr, gzr, nil
	case FormatTarXz:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("xz: %w", err)
		}
		return xzr, nil, nil
	case FormatTarZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return dec, closerFunc(func() error { dec.Close(); return nil }), nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// Entries yields TAR entries in archive order. Each entry is readable only until the next one.
// Device, FIFO and other special records are skipped.
func (s *tarSource) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for {
			hdr, err := s.tr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read %s: %w", s.path, err))
				return
			}

			switch hdr.Typeflag {
			case tar.TypeReg, tar.TypeDir, tar.TypeSymlink, tar.TypeLink, tar.TypeGNUSparse:
			default:
				continue
			}

			if !yield(&tarEntry{hdr: hdr, r: s.tr}, nil) {
				return
			}
		}
	}
}

func (s *tarSource) IsDir() bool { return true }

// Close releases decompressor and file handle.
func (s *tarSource) Close() error {
	if s.closer != nil {
		_ = s.closer.Close()
	}

	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return nil
}

// tarEntry exposes one TAR header and its payload stream.
type tarEntry struct {
	hdr *tar.Header
	r   *tar.Reader
}

// Name returns header name; directories always end with "/".
func (e *tarEntry) Name() string {
	if e.hdr.Typeflag == tar.TypeDir && !strings.HasSuffix(e.hdr.Name, "/") {
		return e.hdr.Name + "/"
	}

	return e.hdr.Name
}

func (e *tarEntry) IsDir() bool        { return e.hdr.Typeflag == tar.TypeDir }
func (e *tarEntry) IsSymlink() bool    { return e.hdr.Typeflag == tar.TypeSymlink }
func (e *tarEntry) IsHardLink() bool   { return e.hdr.Typeflag == tar.TypeLink }
func (e *tarEntry) LinkTarget() string { return e.hdr.Linkname }
func (e *tarEntry) Mode() Mode         { return Mode(e.hdr.Mode) & modePerm }
func (e *tarEntry) ModTime() time.Time { return e.hdr.ModTime }

func (e *tarEntry) Size() int64 {
	if e.IsDir() || e.IsSymlink() || e.IsHardLink() {
		return 0
	}

	return e.hdr.Size
}

// Open returns payload reader valid until source advances.
func (e *tarEntry) Open() (io.ReadCloser, error) {
	if e.Size() == 0 {
		return emptyReadCloser(), nil
	}

	return io.NopCloser(e.r), nil
}

func (e *tarEntry) WriteTo(w io.Writer) (int64, error) {
	return writeEntryTo(e, w)
}

func (e *tarEntry) streamBacked() {}
