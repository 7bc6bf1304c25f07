// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

//go:build !windows

package provisio

import (
	"path/filepath"
	"strconv"
	"testing"

	"golang.org/x/sys/unix"
)

// linkCount returns number of hard links to path.
func linkCount(t *testing.T, path string) uint64 {
	t.Helper()

	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}

	return uint64(st.Nlink) //nolint:unconvert // Nlink width differs between platforms
}

func TestUnarchiveHardLinks(t *testing.T) {
	t.Parallel()

	dest, _ := archiveWith(t, "tar.gz", ArchiveOptions{HardLinkIncludes: []string{"**/*.jar"}},
		NewDirectorySource(makeHardLinkTree(t)))

	out, res := unarchiveWith(t, dest, UnarchiveOptions{StripRoot: true}, nil)
	if res.HardLinks != 4 || res.Files != 3 {
		t.Fatalf("hardLinks=%d files=%d, want 4 and 3", res.HardLinks, res.Files)
	}

	for i := 1; i <= 5; i++ {
		path := filepath.Join(out, strconv.Itoa(i), "foo-1.0.jar")
		if got := readFile(t, path); got != "jar-bytes-jar-bytes" {
			t.Fatalf("%s=%q", path, got)
		}
		if n := linkCount(t, path); n != 5 {
			t.Fatalf("%s nlink=%d, want 5", path, n)
		}
	}

	if got := readFile(t, filepath.Join(out, "7", "same.txt")); got != "monkey" {
		t.Fatalf("7/same.txt=%q, want %q", got, "monkey")
	}
}

func TestUnarchiveDereferenceHardLinks(t *testing.T) {
	t.Parallel()

	dest, _ := archiveWith(t, "tar", ArchiveOptions{HardLinkIncludes: []string{"**/*.jar"}},
		NewDirectorySource(makeHardLinkTree(t)))

	out, res := unarchiveWith(t, dest, UnarchiveOptions{DereferenceHardLinks: true}, nil)
	if res.HardLinks != 4 {
		t.Fatalf("HardLinks=%d, want 4", res.HardLinks)
	}

	for i := 1; i <= 5; i++ {
		path := filepath.Join(out, "hardlinks", strconv.Itoa(i), "foo-1.0.jar")
		if got := readFile(t, path); got != "jar-bytes-jar-bytes" {
			t.Fatalf("%s=%q", path, got)
		}
		if n := linkCount(t, path); n != 1 {
			t.Fatalf("%s nlink=%d, want 1", path, n)
		}
	}
}
