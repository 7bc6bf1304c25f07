// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"path"
	"strings"
)

// NormalizePath converts an archive/internal path to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/", and cleans "." segments.
// A trailing "/" is dropped.
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(path string) string {
	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, `\`, `/`)
	path = strings.TrimPrefix(path, "./")
	return path
}

// stripRoot drops the leading path segment ("root/a/b" -> "a/b").
// Names without a separator are returned unchanged.
func stripRoot(name string) string {
	return name[strings.IndexByte(name, '/')+1:]
}

// baseName returns the part after the last "/" ("a/b.txt" -> "b.txt", "a/b/" -> "").
func baseName(name string) string {
	return name[strings.LastIndexByte(name, '/')+1:]
}

// trimEntryLead removes one leading "/" or "./" from an archive entry name.
func trimEntryLead(name string) string {
	if strings.HasPrefix(name, "/") {
		return name[1:]
	}

	return strings.TrimPrefix(name, "./")
}

// parentDirNames returns every intermediate directory of name with trailing "/".
// For "a/b/c.txt" it returns ["a/", "a/b/"]; for "a/b/" it returns ["a/"].
func parentDirNames(name string) []string {
	segments := strings.FieldsFunc(name, func(r rune) bool { return r == '/' })
	if len(segments) < 2 {
		return nil
	}

	dirs := make([]string, 0, len(segments)-1)
	var b strings.Builder
	for _, segment := range segments[:len(segments)-1] {
		b.WriteString(segment)
		b.WriteByte('/')
		dirs = append(dirs, b.String())
	}

	return dirs
}
