// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/woozymasta/provisio"
)

func newPackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack <archive> <path>...",
		Short: "Pack directories and files into an archive",
		Long: `Pack directories and files into an archive. Format is chosen by archive
extension. Directories are stored under their base name unless --strip-root
is set; existing archives passed with --from are repackaged.`,
		Example: `  provisio pack dist.tar.gz build/app
  provisio pack --normalize --executable '**/bin/*' app.zip build/app
  provisio pack --from old.zip --strip-root new.tar.xz`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.pack(cmd, args[0], args[1:])
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("include", nil, "glob of source paths to pack (repeatable)")
	flags.StringSlice("exclude", nil, "glob of source paths to skip (repeatable)")
	flags.StringSlice("executable", nil, "glob of source paths stored as executable")
	flags.StringSlice("hardlink-include", nil, "glob of TAR entries deduplicated as hard links")
	flags.StringSlice("hardlink-exclude", nil, "glob of TAR entries never deduplicated")
	flags.StringSlice("ignore", nil, "gitignore-style rule, '!' re-includes (repeatable)")
	flags.StringSlice("from", nil, "existing archive to repackage (repeatable)")
	flags.String("prefix", "", "path prepended to every entry")
	flags.Bool("strip-root", false, "drop directory base name from entry paths")
	flags.Bool("flatten", false, "store files by base name only, without directories")
	flags.Bool("normalize", false, "sort entries and fix timestamps for reproducible output")
	flags.Bool("posix-long-names", false, "allow TAR entry names longer than 100 characters")

	return cmd
}

// pack archives paths into dest.
func (a *app) pack(cmd *cobra.Command, dest string, paths []string) error {
	archiver, err := provisio.NewArchiver(provisio.ArchiveOptions{
		Logger:            a.logger,
		Includes:          a.v.GetStringSlice("include"),
		Excludes:          a.v.GetStringSlice("exclude"),
		Executable:        a.v.GetStringSlice("executable"),
		HardLinkIncludes:  a.v.GetStringSlice("hardlink-include"),
		HardLinkExcludes:  a.v.GetStringSlice("hardlink-exclude"),
		IgnoreRules:       ignoreRules(a.v.GetStringSlice("ignore")),
		Prefix:            a.v.GetString("prefix"),
		StripRoot:         a.v.GetBool("strip-root"),
		Flatten:           a.v.GetBool("flatten"),
		Normalize:         a.v.GetBool("normalize"),
		PosixLongFileMode: a.v.GetBool("posix-long-names"),
	})
	if err != nil {
		return err
	}

	sources, err := packSources(paths, a.v.GetStringSlice("from"))
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return provisio.ErrNoSources
	}

	res, err := archiver.Archive(cmd.Context(), dest, sources...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.stdout, "%s\t%d entries\t%d bytes\t%s\n", dest, res.Entries, res.Bytes, res.Digest)
	return err
}

// packSources maps directories to one directory source, files to file sources
// and archives to archive sources.
func packSources(paths []string, archives []string) ([]provisio.Source, error) {
	var (
		sources []provisio.Source
		dirs    []string
	)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if info.IsDir() {
			dirs = append(dirs, path)
			continue
		}

		sources = append(sources, provisio.NewFileSource(path))
	}

	if len(dirs) > 0 {
		sources = append([]provisio.Source{provisio.NewDirectorySource(dirs...)}, sources...)
	}

	for _, path := range archives {
		src, err := provisio.OpenArchiveSource(path)
		if err != nil {
			for _, opened := range sources {
				_ = opened.Close()
			}
			return nil, err
		}

		sources = append(sources, src)
	}

	return sources, nil
}
