// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizePathSegment(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("a", 400)
	gotLong := sanitizePathSegment(longName)
	if len(gotLong) > maxSanitizedSegmentLen {
		t.Fatalf("len(long)=%d, want <= %d", len(gotLong), maxSanitizedSegmentLen)
	}
	if gotLong == longName {
		t.Fatal("long segment was not shortened")
	}

	testCases := []struct {
		in   string
		want string
	}{
		{in: "CON.txt", want: "_CON.txt"},
		{in: "a:b?.txt", want: "a_b_.txt"},
		{in: "name. ", want: "name"},
		{in: "AUX:", want: "_AUX_"},
		{in: "CLOCK$.cfg", want: "_CLOCK$.cfg"},
		{in: "a\x1b[31m.txt", want: "a_[31m.txt"},
		{in: "a\x7fb.txt", want: "a_b.txt"},
		{in: "a\u200fb.txt", want: "a_b.txt"},
		{in: "plain.txt", want: "plain.txt"},
	}

	for _, tc := range testCases {
		got := sanitizePathSegment(tc.in)
		if got != tc.want {
			t.Fatalf("sanitizePathSegment(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "clean", in: "a/b/c.txt", want: "a/b/c.txt"},
		{name: "directory", in: "a/b/", want: "a/b/"},
		{name: "parent segments", in: "../../etc/passwd", want: "_/_/etc/passwd"},
		{name: "backslashes", in: `dir\nul.txt`, want: "dir/_nul.txt"},
		{name: "padded reserved", in: "  COM8.c  /x", want: "_COM8.c/x"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := SanitizePath(tc.in)
			if got != tc.want {
				t.Fatalf("SanitizePath(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNameSanitizerStableAndUnique(t *testing.T) {
	t.Parallel()

	s := newNameSanitizer()

	first, err := s.sanitize("dir/A.txt")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}

	second, err := s.sanitize("dir/a.txt")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}

	if first != "dir/A.txt" {
		t.Fatalf("first=%q, want %q", first, "dir/A.txt")
	}
	if second != "dir/a~2.txt" {
		t.Fatalf("second=%q, want %q", second, "dir/a~2.txt")
	}

	again, err := s.sanitize("dir/a.txt")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if again != second {
		t.Fatalf("repeat sanitize=%q, want stable %q", again, second)
	}

	dir1, _ := s.sanitize("dir/")
	dir2, _ := s.sanitize("dir/")
	if dir1 != "dir/" || dir2 != "dir/" {
		t.Fatalf("directory names=%q,%q, want dir/", dir1, dir2)
	}
}

func TestIsReservedDeviceName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want bool
	}{
		{name: "con", want: true},
		{name: "con.txt", want: true},
		{name: "AUX:", want: true},
		{name: "CLOCK$", want: true},
		{name: "normal.txt", want: false},
		{name: "_con.txt", want: false},
	}

	for _, tc := range testCases {
		if got := isReservedDeviceName(tc.name); got != tc.want {
			t.Fatalf("isReservedDeviceName(%q)=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestResolveWithin(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "out")

	valid := []struct {
		in   string
		want string
	}{
		{in: "a/b.txt", want: filepath.Join(root, "a", "b.txt")},
		{in: "a/../b.txt", want: filepath.Join(root, "b.txt")},
		{in: "dir/", want: filepath.Join(root, "dir")},
		{in: "", want: root},
	}

	for _, tc := range valid {
		got, err := resolveWithin(root, tc.in)
		if err != nil {
			t.Fatalf("resolveWithin(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("resolveWithin(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}

	escaping := []string{
		"../evil.txt",
		"a/../../evil.txt",
		"../../etc/passwd",
		"/etc/passwd",
		`\windows\system32`,
		"C:/evil.txt",
	}

	for _, in := range escaping {
		_, err := resolveWithin(root, in)
		if !errors.Is(err, ErrPathTraversal) {
			t.Fatalf("resolveWithin(%q) err=%v, want ErrPathTraversal", in, err)
		}
	}

	if _, err := resolveWithin(root, "a\x00b"); !errors.Is(err, ErrInvalidEntryPath) {
		t.Fatalf("resolveWithin(NUL) err=%v, want ErrInvalidEntryPath", err)
	}
}
