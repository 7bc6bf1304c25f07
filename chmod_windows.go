// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

//go:build windows

package provisio

import "io/fs"

// chmodPath is no-op: Windows has no POSIX permission bits.
func chmodPath(string, fs.FileMode) error {
	return nil
}
