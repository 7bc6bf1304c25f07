// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

const (
	// maxSanitizedSegmentLen limits one path segment to common filesystem-safe length.
	maxSanitizedSegmentLen = 240
	// maxLinkDepth bounds symlink chains followed while resolving link targets.
	maxLinkDepth = 40
)

var (
	// reservedDOSNames contains case-insensitive reserved DOS/Windows device names.
	reservedDOSNames = map[string]struct{}{
		"aux":    {},
		"clock$": {},
		"com1":   {},
		"com2":   {},
		"com3":   {},
		"com4":   {},
		"com5":   {},
		"com6":   {},
		"com7":   {},
		"com8":   {},
		"com9":   {},
		"con":    {},
		"lpt1":   {},
		"lpt2":   {},
		"lpt3":   {},
		"lpt4":   {},
		"lpt5":   {},
		"lpt6":   {},
		"lpt7":   {},
		"lpt8":   {},
		"lpt9":   {},
		"nul":    {},
		"prn":    {},
	}
)

// SanitizePath rewrites one entry name to deterministic filesystem-safe slash-separated form.
// A trailing "/" (directory entry) is preserved.
func SanitizePath(name string) string {
	dir := strings.HasSuffix(name, "/")
	sanitized := sanitizeRelativePath(strings.ReplaceAll(name, `\`, `/`))
	if dir && sanitized != "" {
		sanitized += "/"
	}

	return sanitized
}

// nameSanitizer rewrites entry names for one extraction and keeps results stable,
// so a hard-link source resolves to the same sanitized name as its target entry.
type nameSanitizer struct {
	memo       map[string]string
	used       map[string]struct{}
	nextSuffix map[string]int
}

// newNameSanitizer creates per-call sanitizer state.
func newNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		memo:       make(map[string]string),
		used:       make(map[string]struct{}),
		nextSuffix: make(map[string]int),
	}
}

// sanitize returns a filesystem-safe, collision-free name for raw.
func (s *nameSanitizer) sanitize(raw string) (string, error) {
	if out, ok := s.memo[raw]; ok {
		return out, nil
	}

	dir := strings.HasSuffix(raw, "/")
	sanitized := sanitizeRelativePath(strings.ReplaceAll(raw, `\`, `/`))
	if sanitized == "" {
		s.memo[raw] = ""
		return "", nil
	}

	// Directories are shared by many entries and never collide with themselves.
	if !dir {
		unique, err := makeSanitizedPathUnique(sanitized, s.used, s.nextSuffix)
		if err != nil {
			return "", fmt.Errorf("sanitize path %s: %w", raw, err)
		}
		sanitized = unique
	} else {
		sanitized += "/"
	}

	s.memo[raw] = sanitized
	return sanitized, nil
}

// sanitizeRelativePath sanitizes each segment of relative slash-separated path.
// Parent segments are replaced, so the result never climbs out of its root.
func sanitizeRelativePath(relativePath string) string {
	parts := strings.Split(relativePath, "/")
	sanitized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			sanitized = append(sanitized, "_")
			continue
		}

		sanitized = append(sanitized, sanitizePathSegment(part))
	}

	return strings.Join(sanitized, "/")
}

// sanitizePathSegment sanitizes one path segment for broad filesystem compatibility.
func sanitizePathSegment(segment string) string {
	rawReserved := isReservedDeviceName(segment)

	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		if isUnsafeControlCharRune(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			b.WriteRune('_')
			continue
		}

		b.WriteRune(r)
	}

	sanitized := strings.TrimRight(b.String(), ". ")
	if sanitized == "" {
		sanitized = "_"
	}

	base := sanitized
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}
	if rawReserved || isReservedDeviceName(base) {
		sanitized = "_" + sanitized
	}

	if len(sanitized) > maxSanitizedSegmentLen {
		sanitized = shortenSegmentDeterministic(sanitized, maxSanitizedSegmentLen)
	}

	return sanitized
}

// isUnsafeControlCharRune reports whether rune is unsafe in file names and should be replaced.
func isUnsafeControlCharRune(r rune) bool {
	if unicode.IsControl(r) || unicode.In(r, unicode.Cf) {
		return true
	}

	// U+FFFD often appears from invalid byte sequences in mangled names.
	return r == '\uFFFD'
}

// isReservedDeviceName reports whether name matches reserved DOS/Windows device identifier.
func isReservedDeviceName(name string) bool {
	candidate := strings.ToLower(strings.TrimRight(strings.TrimSpace(name), ". :"))
	if dot := strings.IndexByte(candidate, '.'); dot >= 0 {
		candidate = candidate[:dot]
	}
	if candidate == "" {
		return false
	}

	_, ok := reservedDOSNames[candidate]
	return ok
}

// makeSanitizedPathUnique resolves collisions by adding deterministic numeric suffix.
func makeSanitizedPathUnique(pathValue string, used map[string]struct{}, nextSuffix map[string]int) (string, error) {
	key := strings.ToLower(pathValue)
	if _, exists := used[key]; !exists {
		used[key] = struct{}{}
		return pathValue, nil
	}

	dir := path.Dir(pathValue)
	name := path.Base(pathValue)
	startIdx := max(nextSuffix[key], 2)

	for idx := startIdx; idx < 1000000; idx++ {
		candidate := withNumericSuffix(name, idx)
		if dir != "." {
			candidate = dir + "/" + candidate
		}

		candidateKey := strings.ToLower(candidate)
		if _, exists := used[candidateKey]; exists {
			continue
		}

		used[candidateKey] = struct{}{}
		nextSuffix[key] = idx + 1
		return candidate, nil
	}

	return "", ErrInvalidEntryPath
}

// withNumericSuffix appends "~N" before extension and preserves max segment length.
func withNumericSuffix(name string, n int) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	suffix := "~" + strconv.Itoa(n)
	allowedBaseLen := max(maxSanitizedSegmentLen-len(ext)-len(suffix), 1)
	if len(base) > allowedBaseLen {
		base = shortenSegmentDeterministic(base, allowedBaseLen)
	}

	return base + suffix + ext
}

// shortenSegmentDeterministic shortens long segment while preserving deterministic identity suffix.
func shortenSegmentDeterministic(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	if maxLen <= 10 {
		return value[:maxLen]
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	hashPart := fmt.Sprintf("~%08x", h.Sum32())
	prefixLen := max(maxLen-len(hashPart), 1)

	return value[:prefixLen] + hashPart
}

// isAbsoluteEntryName reports whether an archive entry name is rooted (unix, UNC or drive-letter form).
func isAbsoluteEntryName(name string) bool {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return true
	}

	return hasWindowsAbsDrivePrefix(strings.ReplaceAll(name, `\`, `/`))
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive prefix like C:/ or C:.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 2 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':'
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// resolveWithin joins an archive entry name onto root and fails when the result escapes root.
// root must be absolute and clean.
func resolveWithin(root string, name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryPath, name)
	}
	if isAbsoluteEntryName(name) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}

	resolved := filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(name, `\`, `/`)))
	if !isWithin(root, resolved) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}

	return resolved, nil
}

// isWithin reports whether target equals root or lies below it. Both must be clean absolute paths.
func isWithin(root string, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ensureRealWithin checks the components of path below root that already exist on disk.
// Any of them being a symlink that resolves outside realRoot fails with ErrPathTraversal.
// realRoot is root with its own symlinks evaluated.
func ensureRealWithin(root string, realRoot string, path string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}
	if rel == "." {
		return nil
	}

	cur := root
	for _, segment := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, segment)

		fi, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if fi.Mode()&fs.ModeSymlink == 0 {
			continue
		}

		resolved, err := filepath.EvalSymlinks(cur)
		if err != nil || !isWithin(realRoot, resolved) {
			return fmt.Errorf("%w: %s links outside output dir", ErrPathTraversal, cur)
		}
	}

	return nil
}

// resolveLinkTarget walks slash target from dir one segment at a time, following
// symlinks present on disk, and fails when any step leaves realRoot.
// dir must be free of symlinks.
func resolveLinkTarget(realRoot string, dir string, target string, depth int) (string, error) {
	if depth > maxLinkDepth {
		return "", fmt.Errorf("%w: too many levels of symbolic links", ErrPathTraversal)
	}

	cur := dir
	for _, segment := range strings.Split(target, "/") {
		switch segment {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
		default:
			cur = filepath.Join(cur, segment)

			fi, err := os.Lstat(cur)
			if err != nil || fi.Mode()&fs.ModeSymlink == 0 {
				break
			}

			next, err := os.Readlink(cur)
			if err != nil {
				return "", err
			}

			if filepath.IsAbs(next) {
				cur = filepath.Clean(next)
				break
			}

			cur, err = resolveLinkTarget(realRoot, filepath.Dir(cur), filepath.ToSlash(next), depth+1)
			if err != nil {
				return "", err
			}
		}

		if !isWithin(realRoot, cur) {
			return "", fmt.Errorf("%w: %s", ErrPathTraversal, target)
		}
	}

	return cur, nil
}
