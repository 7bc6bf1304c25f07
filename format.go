// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Format identifies archive container and compression.
type Format string

// Supported archive formats.
const (
	FormatZip     Format = "zip"
	FormatTar     Format = "tar"
	FormatTarGzip Format = "tar.gz"
	FormatTarXz   Format = "tar.xz"
	FormatTarZstd Format = "tar.zst"
)

// formatExtensions maps file name suffixes to formats. Longer suffixes go first.
var formatExtensions = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGzip},
	{".tar.xz", FormatTarXz},
	{".tar.zst", FormatTarZstd},
	{".tgz", FormatTarGzip},
	{".txz", FormatTarXz},
	{".tzst", FormatTarZstd},
	{".tar", FormatTar},
	{".zip", FormatZip},
	{".jar", FormatZip},
	{".war", FormatZip},
	{".hpi", FormatZip},
	{".jpi", FormatZip},
}

// DetectFormat resolves archive format from file name extension (case-insensitive).
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(filepath.Base(name))
	for _, ext := range formatExtensions {
		if strings.HasSuffix(lower, ext.suffix) {
			return ext.format, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

// ParseFormat resolves format by its name ("zip", "tar.gz", ...) or any known extension.
func ParseFormat(value string) (Format, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch Format(value) {
	case FormatZip, FormatTar, FormatTarGzip, FormatTarXz, FormatTarZstd:
		return Format(value), nil
	}

	return DetectFormat("archive." + strings.TrimPrefix(value, "."))
}

// String returns format name.
func (f Format) String() string {
	return string(f)
}

// wireEntry is one entry prepared for a concrete format writer.
type wireEntry struct {
	modTime     time.Time
	src         Entry
	name        string
	linkTarget  string
	kind        EntryKind
	size        int64
	mode        Mode
	synthesized bool
}

// writerConfig holds per-call writer settings.
type writerConfig struct {
	// hardLinks scopes TAR hard-link deduplication; nil disables it.
	hardLinks *Selector
	// longNames allows TAR names beyond ustar limits.
	longNames bool
}

// archiveWriter encodes entries into one archive stream. It is owned by one archive call.
type archiveWriter interface {
	// wrap prepares entry for this format applying permission merge rule.
	wrap(name string, src Entry, executable bool) *wireEntry
	// write encodes one entry; it may rewrite entry into hard-link record.
	write(e *wireEntry) error
	Close() error
}

// newWriter creates format writer over w.
func newWriter(w io.Writer, format Format, cfg writerConfig) (archiveWriter, error) {
	if format == FormatZip {
		return newZipWriter(w), nil
	}

	return newTarWriter(w, format, cfg)
}

// openSource opens archive at path as entry source.
func openSource(path string, format Format) (Source, error) {
	if format == FormatZip {
		return openZipSource(path)
	}

	return openTarSource(path, format)
}

// wrapEntry applies permission merge rule shared by all formats.
func wrapEntry(name string, src Entry, executable bool) *wireEntry {
	e := &wireEntry{
		name:       name,
		src:        src,
		mode:       withExecutable(src.Mode(), executable),
		linkTarget: src.LinkTarget(),
	}

	switch {
	case src.IsDir():
		e.kind = KindDirectory
	case src.IsSymlink():
		e.kind = KindSymlink
	case src.IsHardLink():
		e.kind = KindHardLink
	default:
		e.kind = KindFile
		e.size = src.Size()
	}

	return e
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }
