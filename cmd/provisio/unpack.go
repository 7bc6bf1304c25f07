// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/woozymasta/provisio"
)

func newUnpackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack <archive> <dir>",
		Short: "Unpack an archive into a directory",
		Example: `  provisio unpack dist.tar.gz out
  provisio unpack --strip-root --include '**/bin/*' app.zip out`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.unpack(cmd, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("include", nil, "glob of entries to extract (repeatable)")
	flags.StringSlice("exclude", nil, "glob of entries to skip (repeatable)")
	flags.StringSlice("ignore", nil, "gitignore-style rule, '!' re-includes (repeatable)")
	flags.Bool("strip-root", false, "drop first path segment of every entry")
	flags.Bool("flatten", false, "extract files by base name only")
	flags.Bool("dereference-hardlinks", false, "copy hard-link sources instead of linking")
	flags.Bool("sanitize", false, "rewrite names unsafe on common filesystems")

	return cmd
}

// unpack extracts archive into dir.
func (a *app) unpack(cmd *cobra.Command, archive string, dir string) error {
	unarchiver, err := provisio.NewUnArchiver(provisio.UnarchiveOptions{
		Logger:               a.logger,
		Includes:             a.v.GetStringSlice("include"),
		Excludes:             a.v.GetStringSlice("exclude"),
		IgnoreRules:          ignoreRules(a.v.GetStringSlice("ignore")),
		StripRoot:            a.v.GetBool("strip-root"),
		Flatten:              a.v.GetBool("flatten"),
		DereferenceHardLinks: a.v.GetBool("dereference-hardlinks"),
		SanitizeNames:        a.v.GetBool("sanitize"),
	})
	if err != nil {
		return err
	}

	res, err := unarchiver.Unarchive(cmd.Context(), archive, dir, nil)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.stdout, "%s\t%d files\t%d unchanged\t%d skipped\n", dir, res.Files, res.Unchanged, res.Skipped)
	return err
}
