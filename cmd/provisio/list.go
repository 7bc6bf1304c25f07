// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/woozymasta/provisio"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list <archive>",
		Aliases: []string{"ls"},
		Short:   "List archive entries in stored order",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.list(args[0])
		},
	}
}

// list prints one line per entry: mode, kind, size, name and link target.
func (a *app) list(archive string) error {
	src, err := provisio.OpenArchiveSource(archive)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	for entry, err := range src.Entries() {
		if err != nil {
			return err
		}

		name := entry.Name()
		if target := entry.LinkTarget(); target != "" {
			name += " -> " + target
		}

		if _, err := fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", entry.Mode(), entryKind(entry), entry.Size(), name); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// entryKind returns kind label of entry.
func entryKind(entry provisio.Entry) provisio.EntryKind {
	switch {
	case entry.IsDir():
		return provisio.KindDirectory
	case entry.IsSymlink():
		return provisio.KindSymlink
	case entry.IsHardLink():
		return provisio.KindHardLink
	default:
		return provisio.KindFile
	}
}
