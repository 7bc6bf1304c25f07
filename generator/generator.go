// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

// Package generator produces throwaway archives and file layouts for tests and benchmarks.
package generator

import (
	"context"
	"fmt"

	"github.com/woozymasta/provisio"
)

// Generator writes one artifact.
type Generator interface {
	Generate(ctx context.Context) (*provisio.ArchiveResult, error)
}

var (
	_ Generator = (*TarGzGenerator)(nil)
	_ Generator = (*JarGenerator)(nil)
)

// TarGzGenerator builds layout on disk and packs it into reproducible TAR+gzip.
// Layout root name is not part of entry paths.
type TarGzGenerator struct {
	layout   *Layout
	artifact string
}

// NewTarGzGenerator creates generator writing artifact from layout materialized in layoutDir.
func NewTarGzGenerator(artifact string, layoutDir string) *TarGzGenerator {
	return NewTarGzGeneratorFromLayout(artifact, NewLayout(layoutDir))
}

// NewTarGzGeneratorFromLayout creates generator over prepared layout.
func NewTarGzGeneratorFromLayout(artifact string, layout *Layout) *TarGzGenerator {
	return &TarGzGenerator{artifact: artifact, layout: layout}
}

// Entry adds inline file to layout.
func (g *TarGzGenerator) Entry(name string, content string) *TarGzGenerator {
	g.layout.Entry(name, content)
	return g
}

// Generate builds layout and writes artifact.
func (g *TarGzGenerator) Generate(ctx context.Context) (*provisio.ArchiveResult, error) {
	if err := g.layout.Build(); err != nil {
		return nil, err
	}

	a, err := provisio.NewArchiver(provisio.ArchiveOptions{
		StripRoot:         true,
		Normalize:         true,
		PosixLongFileMode: true,
	})
	if err != nil {
		return nil, err
	}

	res, err := a.ArchiveDirs(ctx, g.artifact, g.layout.Dir())
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", g.artifact, err)
	}

	return res, nil
}
