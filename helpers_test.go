// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"testing"
	"time"
)

// testFormats lists archive extensions exercised by format-independent tests.
var testFormats = []string{"zip", "jar", "tar", "tar.gz", "tgz", "tar.xz", "tar.zst"}

// archivedEntry is a snapshot of one entry read back from archive.
type archivedEntry struct {
	modTime    time.Time
	linkTarget string
	content    string
	size       int64
	mode       Mode
	dir        bool
	symlink    bool
	hardLink   bool
}

// writeTree creates files with content under root; names ending in "/" become directories.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			if err := os.MkdirAll(path, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", path, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
		}

		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// makeArchive0 creates "archive-0" tree with 0/0.txt .. 4/4.txt holding their own digit.
func makeArchive0(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "archive-0")
	files := make(map[string]string, 5)
	for i := range 5 {
		n := strconv.Itoa(i)
		files[n+"/"+n+".txt"] = n
	}

	writeTree(t, dir, files)
	return dir
}

// archiveNames returns entry names in archive order.
func archiveNames(t *testing.T, path string) []string {
	t.Helper()

	src, err := OpenArchiveSource(path)
	if err != nil {
		t.Fatalf("OpenArchiveSource(%s): %v", path, err)
	}
	defer func() { _ = src.Close() }()

	var names []string
	for entry, err := range src.Entries() {
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}

		names = append(names, entry.Name())
	}

	return names
}

// readArchive returns snapshot of every entry keyed by name.
func readArchive(t *testing.T, path string) map[string]archivedEntry {
	t.Helper()

	src, err := OpenArchiveSource(path)
	if err != nil {
		t.Fatalf("OpenArchiveSource(%s): %v", path, err)
	}
	defer func() { _ = src.Close() }()

	out := make(map[string]archivedEntry)
	for entry, err := range src.Entries() {
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}

		var buf bytes.Buffer
		if _, err := entry.WriteTo(&buf); err != nil {
			t.Fatalf("read entry %s: %v", entry.Name(), err)
		}

		out[entry.Name()] = archivedEntry{
			modTime:    entry.ModTime(),
			linkTarget: entry.LinkTarget(),
			content:    buf.String(),
			size:       entry.Size(),
			mode:       entry.Mode(),
			dir:        entry.IsDir(),
			symlink:    entry.IsSymlink(),
			hardLink:   entry.IsHardLink(),
		}
	}

	return out
}

// assertNames fails unless got equals want ignoring order.
func assertNames(t *testing.T, got []string, want ...string) {
	t.Helper()

	got = slices.Clone(got)
	want = slices.Clone(want)
	slices.Sort(got)
	slices.Sort(want)

	if !slices.Equal(got, want) {
		t.Fatalf("entries=%v, want %v", got, want)
	}
}

// archiveWith packs sources with options into temp archive of given extension.
func archiveWith(t *testing.T, ext string, opts ArchiveOptions, sources ...Source) (string, *ArchiveResult) {
	t.Helper()

	a, err := NewArchiver(opts)
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "out."+ext)
	res, err := a.Archive(context.Background(), dest, sources...)
	if err != nil {
		t.Fatalf("Archive(%s): %v", dest, err)
	}

	return dest, res
}

// unarchiveWith extracts archive into fresh temp directory.
func unarchiveWith(t *testing.T, archive string, opts UnarchiveOptions, p EntryProcessor) (string, *UnarchiveResult) {
	t.Helper()

	u, err := NewUnArchiver(opts)
	if err != nil {
		t.Fatalf("NewUnArchiver: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out")
	res, err := u.Unarchive(context.Background(), archive, out, p)
	if err != nil {
		t.Fatalf("Unarchive(%s): %v", archive, err)
	}

	return out, res
}

// readFile returns file content or fails.
func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}

	return string(data)
}

// writeRawTar writes hand-made TAR headers, bypassing archiver path checks.
func writeRawTar(t *testing.T, path string, headers []*tar.Header, payloads map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	tw := tar.NewWriter(f)
	for _, hdr := range headers {
		content := payloads[hdr.Name]
		if hdr.Typeflag == tar.TypeReg {
			hdr.Size = int64(len(content))
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
		}

		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", hdr.Name, err)
		}

		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, content); err != nil {
				t.Fatalf("write payload %s: %v", hdr.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
}

// runtimeHasPosixModes reports whether file permission bits round-trip on this platform.
func runtimeHasPosixModes() bool {
	return runtime.GOOS != "windows"
}

// skipWithoutPosix skips tests relying on POSIX permissions and links.
func skipWithoutPosix(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions and links are not available on windows")
	}
}
