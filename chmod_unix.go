// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

//go:build !windows

package provisio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// chmodPath applies permission bits to path. Filesystems without POSIX
// permission support are skipped silently.
func chmodPath(path string, mode fs.FileMode) error {
	err := os.Chmod(path, mode)
	if err == nil || errors.Is(err, errors.ErrUnsupported) {
		return nil
	}

	return fmt.Errorf("chmod %s: %w", path, err)
}
