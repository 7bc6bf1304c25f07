// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import "io"

// EntryProcessor customizes extraction of individual entries.
// Embed NopProcessor to override only some hooks.
type EntryProcessor interface {
	// TargetName renames entry before any disk I/O.
	TargetName(name string) string
	// SourceName rewrites hard-link source names, independent of TargetName.
	SourceName(name string) string
	// ProcessStream transforms regular file content from r to w.
	ProcessStream(entryName string, r io.Reader, w io.Writer) error
	// Processed is called after entry is fully written with its final name and resolved path.
	Processed(entryName string, target string) error
}

// NopProcessor keeps names unchanged and copies content verbatim.
type NopProcessor struct{}

func (NopProcessor) TargetName(name string) string { return name }
func (NopProcessor) SourceName(name string) string { return name }

func (NopProcessor) ProcessStream(_ string, r io.Reader, w io.Writer) error {
	_, err := copyPayload(w, r)
	return err
}

func (NopProcessor) Processed(string, string) error { return nil }

// NameProcessor is the older two-hook processor shape.
//
// Deprecated: implement EntryProcessor and wrap legacy processors with AdaptNameProcessor.
type NameProcessor interface {
	ProcessName(name string) string
	ProcessStream(entryName string, r io.Reader, w io.Writer) error
}

// AdaptNameProcessor exposes NameProcessor as EntryProcessor.
// ProcessName is used as TargetName; hard-link sources keep their names.
//
// Deprecated: implement EntryProcessor directly.
func AdaptNameProcessor(p NameProcessor) EntryProcessor {
	if p == nil {
		return NopProcessor{}
	}

	return nameProcessorAdapter{p: p}
}

// nameProcessorAdapter bridges NameProcessor to EntryProcessor.
type nameProcessorAdapter struct {
	NopProcessor
	p NameProcessor
}

func (a nameProcessorAdapter) TargetName(name string) string {
	return a.p.ProcessName(name)
}

func (a nameProcessorAdapter) ProcessStream(entryName string, r io.Reader, w io.Writer) error {
	return a.p.ProcessStream(entryName, r, w)
}
