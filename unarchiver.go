// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// UnArchiver extracts ZIP and TAR archives onto a filesystem.
// It holds compiled options only and may serve concurrent calls for different output directories.
type UnArchiver struct {
	selector *Selector
	ignore   *ignoreMatcher
	opts     UnarchiveOptions
}

// NewUnArchiver compiles unarchive options. Malformed patterns fail with ErrInvalidPattern.
func NewUnArchiver(opts UnarchiveOptions) (*UnArchiver, error) {
	opts.applyDefaults()

	selector, err := NewSelector(opts.Includes, opts.Excludes)
	if err != nil {
		return nil, fmt.Errorf("compile selector: %w", err)
	}

	ignore, err := newIgnoreMatcher(opts.IgnoreRules, opts.IgnoreMatcherOptions)
	if err != nil {
		return nil, err
	}

	return &UnArchiver{opts: opts, selector: selector, ignore: ignore}, nil
}

// Unarchive extracts archive into outDir in one forward pass over archive entries.
// A nil processor copies entries verbatim. Any entry resolving outside outDir fails
// with ErrPathTraversal; entries written before the failure are left on disk.
func (u *UnArchiver) Unarchive(ctx context.Context, archive string, outDir string, p EntryProcessor) (*UnarchiveResult, error) {
	startedAt := time.Now()

	if ctx == nil {
		ctx = context.Background()
	}

	if p == nil {
		p = NopProcessor{}
	}

	format, err := DetectFormat(archive)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	src, err := openSource(archive, format)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	run := &unarchiveRun{
		u:        u,
		p:        p,
		root:     root,
		realRoot: realRoot,
		res:      &UnarchiveResult{},
	}
	if u.opts.SanitizeNames {
		run.sanitizer = newNameSanitizer()
	}

	for entry, err := range src.Entries() {
		if err != nil {
			return nil, err
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := run.extract(entry); err != nil {
			return nil, err
		}
	}

	if err := run.applyDeferredModes(); err != nil {
		return nil, err
	}

	run.res.Duration = time.Since(startedAt)
	u.opts.Logger.Info("archive extracted",
		"archive", archive,
		"files", run.res.Files,
		"directories", run.res.Directories,
		"duration", run.res.Duration,
	)

	return run.res, nil
}

// deferredMode is directory permission applied after all entries are written.
type deferredMode struct {
	path string
	mode fs.FileMode
}

// unarchiveRun is state owned by one unarchive call.
type unarchiveRun struct {
	u         *UnArchiver
	p         EntryProcessor
	sanitizer *nameSanitizer
	res       *UnarchiveResult
	root      string
	realRoot  string
	dirModes  []deferredMode
}

// adjustName applies root stripping, processor rename hook and flattening.
// The second result is false when entry is dropped by selection.
func (r *unarchiveRun) adjustName(name string, rename func(string) string, isDir bool, selecting bool) (string, bool) {
	if r.u.opts.StripRoot {
		name = stripRoot(name)
	}

	name = rename(name)
	if selecting && (!r.u.selector.Include(name) || !r.u.ignore.Included(name, isDir)) {
		return "", false
	}

	if r.u.opts.Flatten {
		name = baseName(name)
	}

	return name, true
}

// extract reconstructs one entry on disk.
func (r *unarchiveRun) extract(entry Entry) error {
	raw := entry.Name()
	name, selected := r.adjustName(raw, r.p.TargetName, entry.IsDir(), true)
	if !selected {
		r.res.Skipped++
		return nil
	}

	name, path, err := r.resolve(name)
	if err != nil {
		return fmt.Errorf("extract %s: %w", raw, err)
	}

	if path == r.root {
		return nil
	}

	if entry.IsDir() {
		if err := ensureRealWithin(r.root, r.realRoot, path); err != nil {
			return fmt.Errorf("extract %s: %w", raw, err)
		}

		return r.extractDir(entry, name, path)
	}

	if err := ensureRealWithin(r.root, r.realRoot, filepath.Dir(path)); err != nil {
		return fmt.Errorf("extract %s: %w", raw, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", name, err)
	}

	switch {
	case entry.IsHardLink():
		err = r.extractHardLink(entry, name, path)
	case entry.IsSymlink():
		err = r.extractSymlink(entry, name, path)
	default:
		err = r.extractFile(entry, name, path)
	}
	if err != nil {
		return err
	}

	return r.p.Processed(name, path)
}

// resolve maps entry name to its output path. Traversal is checked on the name as
// stored in the archive, so sanitization never turns an escaping entry into a rename.
func (r *unarchiveRun) resolve(name string) (string, string, error) {
	path, err := resolveWithin(r.root, name)
	if err != nil {
		return "", "", err
	}

	if r.sanitizer == nil {
		return name, path, nil
	}

	name, err = r.sanitizer.sanitize(name)
	if err != nil {
		return "", "", err
	}

	path, err = resolveWithin(r.root, name)
	if err != nil {
		return "", "", err
	}

	return name, path, nil
}

// extractDir creates directory. Modes without owner rwx are applied at the end,
// so restrictive directories do not block their own children.
func (r *unarchiveRun) extractDir(entry Entry, name string, path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", name, err)
	}

	mode := restoredMode(entry.Mode(), true)
	if mode&0o700 != 0o700 {
		r.dirModes = append(r.dirModes, deferredMode{path: path, mode: mode})
		mode |= 0o700
	}

	if err := chmodPath(path, mode); err != nil {
		return err
	}

	r.res.Directories++
	r.u.opts.Logger.Debug("directory created", "path", name)

	return r.p.Processed(name, path)
}

// extractHardLink links (or copies) previously extracted source to path.
func (r *unarchiveRun) extractHardLink(entry Entry, name string, path string) error {
	sourceName, _ := r.adjustName(entry.LinkTarget(), r.p.SourceName, false, false)
	sourceName, sourcePath, err := r.resolve(sourceName)
	if err != nil {
		return fmt.Errorf("hard link %s: %w", name, err)
	}

	if err := ensureRealWithin(r.root, r.realRoot, sourcePath); err != nil {
		return fmt.Errorf("hard link %s: %w", name, err)
	}

	if r.u.opts.DereferenceHardLinks {
		if err := copyFile(sourcePath, path); err != nil {
			return fmt.Errorf("dereference hard link %s: %w", name, err)
		}
	} else {
		if err := removeExisting(path); err != nil {
			return err
		}

		if err := os.Link(sourcePath, path); err != nil {
			return fmt.Errorf("hard link %s: %w", name, err)
		}
	}

	if err := chmodPath(path, restoredMode(entry.Mode(), false)); err != nil {
		return err
	}

	r.res.HardLinks++
	r.u.opts.Logger.Debug("hard link created", "path", name, "source", sourceName)

	return nil
}

// extractSymlink creates symlink whose target stays inside output directory.
// Relative targets are kept; absolute targets are re-rooted under output directory
// and expressed relative to link directory. Targets are resolved through links
// already on disk, so chains of links cannot reach outside output directory.
func (r *unarchiveRun) extractSymlink(entry Entry, name string, path string) error {
	target := entry.LinkTarget()
	if target == "" {
		return fmt.Errorf("%w: symlink %s has empty target", ErrInvalidEntryPath, name)
	}

	slashTarget := strings.ReplaceAll(target, `\`, `/`)
	if hasWindowsAbsDrivePrefix(slashTarget) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrPathTraversal, name, target)
	}

	linkDir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("symlink %s: %w", name, err)
	}

	linkValue := filepath.FromSlash(slashTarget)
	if strings.HasPrefix(slashTarget, "/") {
		rel, err := filepath.Rel(linkDir, filepath.Join(r.realRoot, filepath.FromSlash(slashTarget)))
		if err != nil {
			return fmt.Errorf("symlink %s: %w", name, err)
		}
		linkValue = rel
		slashTarget = filepath.ToSlash(rel)
	}

	if _, err := resolveLinkTarget(r.realRoot, linkDir, slashTarget, 0); err != nil {
		return fmt.Errorf("symlink %s -> %s: %w", name, target, err)
	}

	if err := removeExisting(path); err != nil {
		return err
	}

	if err := os.Symlink(linkValue, path); err != nil {
		return fmt.Errorf("symlink %s: %w", name, err)
	}

	r.res.Symlinks++
	r.u.opts.Logger.Debug("symlink created", "path", name, "target", linkValue)

	return nil
}

// extractFile streams entry content through processor into caching output.
func (r *unarchiveRun) extractFile(entry Entry, name string, path string) error {
	out, err := createCachingFile(path)
	if err != nil {
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		out.abort()
		return fmt.Errorf("open entry %s: %w", entry.Name(), err)
	}

	err = r.p.ProcessStream(entry.Name(), rc, out)
	_ = rc.Close()
	if err != nil {
		out.abort()
		return fmt.Errorf("write %s: %w", name, err)
	}

	changed, err := out.commit()
	if err != nil {
		return err
	}

	if err := chmodPath(path, restoredMode(entry.Mode(), false)); err != nil {
		return err
	}

	r.res.Bytes += out.n
	if changed {
		r.res.Files++
	} else {
		r.res.Unchanged++
	}

	r.u.opts.Logger.Debug("file written", "path", name, "size", out.n, "changed", changed)

	return nil
}

// applyDeferredModes sets restrictive directory modes, deepest first.
func (r *unarchiveRun) applyDeferredModes() error {
	for _, d := range slices.Backward(r.dirModes) {
		if err := chmodPath(d.path, d.mode); err != nil {
			return err
		}
	}

	return nil
}

// restoredMode returns entry permission or 0755/0644 default when entry reports none.
func restoredMode(mode Mode, dir bool) fs.FileMode {
	if mode > 0 {
		return mode.FileMode()
	}

	if dir {
		return DefaultDirMode.FileMode()
	}

	return DefaultFileMode.FileMode()
}

// removeExisting deletes file or link at path; missing path is not an error.
func removeExisting(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing %s: %w", path, err)
	}

	return nil
}

// copyFile copies regular file content from src to dst through caching output.
func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := createCachingFile(dst)
	if err != nil {
		return err
	}

	if _, err := copyPayload(out, in); err != nil {
		out.abort()
		return err
	}

	_, err = out.commit()
	return err
}
