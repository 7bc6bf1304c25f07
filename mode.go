// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"io/fs"
	"strconv"
)

// Mode holds POSIX permission bits (including setuid, setgid and sticky) of one entry.
type Mode int32

// ModeUnknown marks entries whose source cannot express permission bits.
const ModeUnknown Mode = -1

// POSIX special permission bits.
const (
	modeSetuid Mode = 0o4000
	modeSetgid Mode = 0o2000
	modeSticky Mode = 0o1000
	modePerm   Mode = 0o7777
)

// Known reports whether mode carries real permission bits.
func (m Mode) Known() bool {
	return m >= 0
}

// FileMode converts POSIX bits to fs.FileMode permission and special bits.
func (m Mode) FileMode() fs.FileMode {
	if m < 0 {
		return 0
	}

	out := fs.FileMode(m & 0o777)
	if m&modeSetuid != 0 {
		out |= fs.ModeSetuid
	}
	if m&modeSetgid != 0 {
		out |= fs.ModeSetgid
	}
	if m&modeSticky != 0 {
		out |= fs.ModeSticky
	}

	return out
}

// String returns octal form like "0755", or "unknown".
func (m Mode) String() string {
	if m < 0 {
		return "unknown"
	}

	s := strconv.FormatInt(int64(m&modePerm), 8)
	for len(s) < 4 {
		s = "0" + s
	}

	return s
}

// modeFromFileMode extracts POSIX bits from fs.FileMode.
func modeFromFileMode(fm fs.FileMode) Mode {
	out := Mode(fm.Perm())
	if fm&fs.ModeSetuid != 0 {
		out |= modeSetuid
	}
	if fm&fs.ModeSetgid != 0 {
		out |= modeSetgid
	}
	if fm&fs.ModeSticky != 0 {
		out |= modeSticky
	}

	return out
}

// withExecutable merges forced executable bits into mode.
func withExecutable(m Mode, executable bool) Mode {
	if !executable {
		return m
	}

	if !m.Known() {
		return ExecutableMode
	}

	return m | 0o111
}
