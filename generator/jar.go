// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package generator

import (
	"context"
	"fmt"
	"iter"
	"math/rand"

	"github.com/woozymasta/provisio"
)

const (
	// jarSeed seeds entry payload generation; equal sizes give equal archives.
	jarSeed = 12345
	// jarChunkSize is payload length of every generated entry.
	jarChunkSize = 100000
	bytesInMiB   = 1024 * 1024
)

// JarGenerator writes ZIP archive of random incompressible entries named "content-NNN".
type JarGenerator struct {
	file string
	size int64
}

// NewJarGenerator creates generator for archive of roughly sizeMiB mebibytes of payload.
func NewJarGenerator(file string, sizeMiB int64) *JarGenerator {
	return &JarGenerator{file: file, size: sizeMiB * bytesInMiB}
}

// Generate writes archive. Output is byte-identical for equal sizes.
func (g *JarGenerator) Generate(ctx context.Context) (*provisio.ArchiveResult, error) {
	a, err := provisio.NewArchiver(provisio.ArchiveOptions{Normalize: true})
	if err != nil {
		return nil, err
	}

	format, err := provisio.DetectFormat(g.file)
	if err != nil {
		return nil, err
	}
	if format != provisio.FormatZip {
		return nil, fmt.Errorf("%w: %s is not a zip artifact", provisio.ErrUnknownFormat, g.file)
	}

	res, err := a.Archive(ctx, g.file, &randomSource{size: g.size})
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", g.file, err)
	}

	return res, nil
}

// randomSource yields seeded random payload entries lazily.
type randomSource struct {
	size int64
}

func (s *randomSource) Entries() iter.Seq2[provisio.Entry, error] {
	return func(yield func(provisio.Entry, error) bool) {
		rnd := rand.New(rand.NewSource(jarSeed)) //nolint:gosec // reproducible test payload

		n := 1
		for i := int64(0); i < s.size-1; i += jarChunkSize {
			content := rand.New(rand.NewSource(rnd.Int63())) //nolint:gosec // reproducible test payload
			data := make([]byte, jarChunkSize)
			_, _ = content.Read(data)

			name := fmt.Sprintf("content-%03d", n)
			if !yield(provisio.NewBytesEntry(name, data, provisio.DefaultFileMode), nil) {
				return
			}
			n++
		}
	}
}

func (s *randomSource) IsDir() bool  { return false }
func (s *randomSource) Close() error { return nil }
