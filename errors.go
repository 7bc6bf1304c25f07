// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import "errors"

// Sentinel errors for archive operations. Use errors.Is in callers.
var (
	// ErrUnknownFormat means the archive file name has no recognized extension.
	ErrUnknownFormat = errors.New("cannot detect archive format")
	// ErrInvalidPattern means one or more include, exclude, executable, hard-link or ignore patterns are malformed.
	ErrInvalidPattern = errors.New("invalid path pattern")
	// ErrDuplicateEntryPath means two explicitly supplied entries resolve to the same archive path.
	ErrDuplicateEntryPath = errors.New("duplicate archive entry")
	// ErrPathTraversal means an extracted entry would resolve outside the output directory.
	ErrPathTraversal = errors.New("archive escape attempt detected")
	// ErrInvalidEntryPath means an entry path is empty or malformed.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrNoSources means archive was called without any entry source.
	ErrNoSources = errors.New("no sources provided for archive")
	// ErrNilSource means one of the provided sources is nil.
	ErrNilSource = errors.New("source is nil")
	// ErrNilWriter means the archive destination writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrLongEntryName means a TAR entry name does not fit ustar limits and long file mode is disabled.
	ErrLongEntryName = errors.New("entry name too long for ustar (enable posix long file mode)")
	// ErrUnsupportedEntry means the target format cannot store this entry kind.
	ErrUnsupportedEntry = errors.New("entry kind not supported by format")
	// ErrDirectoryEntryName means a synthetic directory entry was created with a name lacking trailing "/".
	ErrDirectoryEntryName = errors.New("directory entry name must end with /")
)
