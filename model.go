// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/woozymasta/pathrules"
)

// Timestamps used when archive output normalization is requested.
const (
	// NormalizedModTimeMillis is the fixed entry timestamp in Unix milliseconds
	// (1980-01-01T08:00:00Z, the DOS epoch as seen from US Pacific time).
	NormalizedModTimeMillis int64 = 315561600000
	// ClassFileTimeOffset is added to normalized timestamps of ".class" entries
	// so they stay newer than same-named sources.
	ClassFileTimeOffset = 2000 * time.Millisecond
)

// Default permission bits used when an entry reports no usable mode.
const (
	DefaultFileMode Mode = 0o644
	DefaultDirMode  Mode = 0o755
	// ExecutableMode is applied to executable entries without a known mode.
	ExecutableMode Mode = 0o755
)

// EntryKind classifies one written or extracted entry.
type EntryKind string

// Entry kinds reported in progress events.
const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
	KindSymlink   EntryKind = "symlink"
	KindHardLink  EntryKind = "hardlink"
)

// ArchiveEntryProgress contains one completed entry write event from archive flow.
type ArchiveEntryProgress struct {
	// Path is final entry path written to archive.
	Path string `json:"path" yaml:"path"`
	// LinkTarget is set for symlink and hard-link records.
	LinkTarget string `json:"link_target,omitempty" yaml:"link_target,omitempty"`
	// Kind is entry kind written to archive.
	Kind EntryKind `json:"kind" yaml:"kind"`
	// Size is payload size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// Mode is permission mode stored for this entry, ModeUnknown when format default is used.
	Mode Mode `json:"mode" yaml:"mode"`
	// Synthesized reports whether entry is an intermediate directory created by archiver.
	Synthesized bool `json:"synthesized,omitempty" yaml:"synthesized,omitempty"`
}

// ArchiveOptions configures Archiver behavior.
type ArchiveOptions struct {
	// OnEntryDone is called after one entry is fully written to archive stream.
	OnEntryDone func(entry ArchiveEntryProgress) `json:"-" yaml:"-"`
	// Logger receives debug/info events; nil discards them.
	Logger *log.Logger `json:"-" yaml:"-"`
	// Prefix is prepended to every final entry path.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Includes are glob patterns selecting entries by source path; empty means everything.
	Includes []string `json:"includes,omitempty" yaml:"includes,omitempty"`
	// Excludes are glob patterns dropping entries by source path; exclude wins over include.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	// Executable are glob patterns matched against source path that force executable bits.
	Executable []string `json:"executable,omitempty" yaml:"executable,omitempty"`
	// HardLinkIncludes scope TAR hard-link deduplication by final path.
	HardLinkIncludes []string `json:"hard_link_includes,omitempty" yaml:"hard_link_includes,omitempty"`
	// HardLinkExcludes drop paths from TAR hard-link deduplication.
	HardLinkExcludes []string `json:"hard_link_excludes,omitempty" yaml:"hard_link_excludes,omitempty"`
	// IgnoreRules are ordered gitignore-style rules evaluated against source path.
	IgnoreRules []pathrules.Rule `json:"ignore_rules,omitempty" yaml:"ignore_rules,omitempty"`
	// IgnoreMatcherOptions control ignore rule matching.
	IgnoreMatcherOptions pathrules.MatcherOptions `json:"ignore_matcher_options,omitzero" yaml:"ignore_matcher_options,omitzero"`
	// StripRoot drops the first path segment of entries from directory sources.
	StripRoot bool `json:"strip_root,omitempty" yaml:"strip_root,omitempty"`
	// Flatten reduces directory-source entries to base names and drops directories.
	Flatten bool `json:"flatten,omitempty" yaml:"flatten,omitempty"`
	// Normalize forces sorted entries and fixed timestamps for reproducible output.
	Normalize bool `json:"normalize,omitempty" yaml:"normalize,omitempty"`
	// PosixLongFileMode allows TAR names beyond ustar limits.
	PosixLongFileMode bool `json:"posix_long_file_mode,omitempty" yaml:"posix_long_file_mode,omitempty"`
}

// ArchiveResult contains archive output statistics.
type ArchiveResult struct {
	// Digest is canonical digest of archive bytes as written.
	Digest string `json:"digest" yaml:"digest"`
	// Entries is number of explicit entries written.
	Entries int `json:"entries" yaml:"entries"`
	// Directories is number of synthesized intermediate directories written.
	Directories int `json:"directories,omitempty" yaml:"directories,omitempty"`
	// HardLinks is number of hard-link records written.
	HardLinks int `json:"hard_links,omitempty" yaml:"hard_links,omitempty"`
	// Symlinks is number of symlink entries written.
	Symlinks int `json:"symlinks,omitempty" yaml:"symlinks,omitempty"`
	// Bytes is total archive size in bytes.
	Bytes int64 `json:"bytes" yaml:"bytes"`
	// Duration is end-to-end archive duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// UnarchiveOptions configures UnArchiver behavior.
type UnarchiveOptions struct {
	// Logger receives debug/info events; nil discards them.
	Logger *log.Logger `json:"-" yaml:"-"`
	// Includes are glob patterns selecting entries; empty means everything.
	Includes []string `json:"includes,omitempty" yaml:"includes,omitempty"`
	// Excludes are glob patterns dropping entries; exclude wins over include.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	// IgnoreRules are ordered gitignore-style rules evaluated against entry path.
	IgnoreRules []pathrules.Rule `json:"ignore_rules,omitempty" yaml:"ignore_rules,omitempty"`
	// IgnoreMatcherOptions control ignore rule matching.
	IgnoreMatcherOptions pathrules.MatcherOptions `json:"ignore_matcher_options,omitzero" yaml:"ignore_matcher_options,omitzero"`
	// StripRoot drops the first path segment of every entry.
	StripRoot bool `json:"strip_root,omitempty" yaml:"strip_root,omitempty"`
	// Flatten extracts every entry by base name directly into output directory.
	Flatten bool `json:"flatten,omitempty" yaml:"flatten,omitempty"`
	// PosixLongFileMode is accepted for symmetry with ArchiveOptions; readers accept all TAR variants.
	PosixLongFileMode bool `json:"posix_long_file_mode,omitempty" yaml:"posix_long_file_mode,omitempty"`
	// DereferenceHardLinks materializes hard links as independent file copies.
	DereferenceHardLinks bool `json:"dereference_hard_links,omitempty" yaml:"dereference_hard_links,omitempty"`
	// SanitizeNames rewrites entry names to filesystem-safe form before extraction.
	// Entries resolving outside output directory still fail with ErrPathTraversal.
	SanitizeNames bool `json:"sanitize_names,omitempty" yaml:"sanitize_names,omitempty"`
}

// UnarchiveResult contains extraction statistics.
type UnarchiveResult struct {
	// Files is number of regular files written.
	Files int `json:"files" yaml:"files"`
	// Directories is number of directory entries created.
	Directories int `json:"directories,omitempty" yaml:"directories,omitempty"`
	// HardLinks is number of hard links created or dereferenced.
	HardLinks int `json:"hard_links,omitempty" yaml:"hard_links,omitempty"`
	// Symlinks is number of symlinks created.
	Symlinks int `json:"symlinks,omitempty" yaml:"symlinks,omitempty"`
	// Skipped is number of entries dropped by selection rules.
	Skipped int `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// Unchanged is number of regular files left untouched because content matched.
	Unchanged int `json:"unchanged,omitempty" yaml:"unchanged,omitempty"`
	// Bytes is total payload bytes produced by the stream processor.
	Bytes int64 `json:"bytes" yaml:"bytes"`
	// Duration is end-to-end extraction duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// applyDefaults fills zero-valued archive options with defaults.
func (opts *ArchiveOptions) applyDefaults() {
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}

	applyIgnoreDefaults(&opts.IgnoreMatcherOptions)
}

// applyDefaults fills zero-valued unarchive options with defaults.
func (opts *UnarchiveOptions) applyDefaults() {
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}

	applyIgnoreDefaults(&opts.IgnoreMatcherOptions)
}

// applyIgnoreDefaults makes unmatched paths participate.
func applyIgnoreDefaults(opts *pathrules.MatcherOptions) {
	if opts.DefaultAction == pathrules.ActionUnknown {
		opts.DefaultAction = pathrules.ActionInclude
	}
}

// discardLogger returns logger writing nowhere.
func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
