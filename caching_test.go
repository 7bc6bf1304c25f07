// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCachingFileCommit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "data.bin")
	payload := bytes.Repeat([]byte("0123456789"), copyBufferSize/5)

	write := func(data []byte) bool {
		t.Helper()

		out, err := createCachingFile(target)
		if err != nil {
			t.Fatalf("createCachingFile: %v", err)
		}
		if _, err := out.Write(data); err != nil {
			t.Fatalf("Write: %v", err)
		}

		changed, err := out.commit()
		if err != nil {
			t.Fatalf("commit: %v", err)
		}

		return changed
	}

	if !write(payload) {
		t.Fatal("first commit must report change")
	}
	if write(payload) {
		t.Fatal("identical content must not report change")
	}

	modified := bytes.Clone(payload)
	modified[len(modified)-1] = 'x'
	if !write(modified) {
		t.Fatal("content differing in last byte must report change")
	}

	if !write(payload[:10]) {
		t.Fatal("shorter content must report change")
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "0123456789" {
		t.Fatalf("target=%q, want %q", data, "0123456789")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want only target", len(entries))
	}
}

func TestCachingFileAbort(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out, err := createCachingFile(filepath.Join(dir, "x.txt"))
	if err != nil {
		t.Fatalf("createCachingFile: %v", err)
	}

	if _, err := out.Write([]byte("partial")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out.abort()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("abort left %d files", len(entries))
	}
}
