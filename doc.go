// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

// Package provisio packs filesystem trees and discrete entries into ZIP or
// TAR (plain, gzip, xz, zstd) archives and unpacks them back, preserving
// POSIX permissions, symbolic links, hard links and entry order. With
// normalization enabled, archive output is byte-for-byte reproducible
// regardless of input order or wall-clock time.
//
// Formats are selected by file name extension:
//   - .zip .jar .war .hpi .jpi: ZIP;
//   - .tar.gz .tgz: TAR+gzip;
//   - .tar.xz .txz: TAR+xz;
//   - .tar.zst .tzst: TAR+zstd;
//   - .tar: plain TAR.
//
// # Archiving
//
// Pack one directory with its base name as root:
//
//	a, err := provisio.NewArchiver(provisio.ArchiveOptions{
//	    Excludes:   []string{"**/*.tmp"},
//	    Executable: []string{"**/bin/*"},
//	    Normalize:  true,
//	})
//	if err != nil {
//	    return err
//	}
//	res, err := a.ArchiveDirs(ctx, "dist.tar.gz", "build/app")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Entries, res.Digest)
//
// Entries from directory sources are named "<base>/<relative path>".
// StripRoot drops that first segment, Flatten keeps only base names and
// drops directories, and Prefix is prepended to every final path. Missing
// parent directories are synthesized. Two explicit entries resolving to the
// same path fail with ErrDuplicateEntryPath.
//
// Mix sources to combine trees, single files and in-memory content:
//
//	res, err := a.Archive(ctx, "bundle.zip",
//	    provisio.NewDirectorySource("conf"),
//	    provisio.NewNamedFileSource("bin/tool", "/usr/local/bin/tool"),
//	    provisio.NewEntrySource(provisio.NewStringEntry("VERSION", "1.2.3\n")),
//	)
//
// Repackage an existing archive:
//
//	src, err := provisio.OpenArchiveSource("in.zip")
//	if err != nil {
//	    return err
//	}
//	res, err := a.Archive(ctx, "out.tar.xz", src)
//
// For TAR formats, HardLinkIncludes/HardLinkExcludes enable deduplication:
// later files sharing a base name with an already written selected file are
// stored as hard-link records.
//
// # Unarchiving
//
//	u, err := provisio.NewUnArchiver(provisio.UnarchiveOptions{StripRoot: true})
//	if err != nil {
//	    return err
//	}
//	res, err := u.Unarchive(ctx, "dist.tar.gz", "out", nil)
//
// Entries resolving outside the output directory, including symlink targets,
// fail with ErrPathTraversal. Existing files with identical content are left
// untouched. Implement EntryProcessor (embedding NopProcessor) to rename
// entries or transform content:
//
//	type upper struct{ provisio.NopProcessor }
//
//	func (upper) ProcessStream(_ string, r io.Reader, w io.Writer) error {
//	    data, err := io.ReadAll(r)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = w.Write(bytes.ToUpper(data))
//	    return err
//	}
//
// # Selection
//
// Include, exclude, executable and hard-link patterns use doublestar globs:
// "**" crosses directory boundaries, "*" does not, and exclude wins over
// include. IgnoreRules add ordered gitignore-style rules evaluated after the
// glob selector.
package provisio
