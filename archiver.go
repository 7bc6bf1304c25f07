// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
)

// archiveWriteBufferSize is buffered writer size between format encoder and destination.
const archiveWriteBufferSize = 256 * 1024

// Archiver packs entry sources into ZIP or TAR archives.
// It holds compiled options only; every call owns its own path and hard-link tables,
// so one Archiver may serve concurrent calls targeting different destinations.
type Archiver struct {
	selector   *Selector
	hardLinks  *Selector
	ignore     *ignoreMatcher
	executable []string
	opts       ArchiveOptions
}

// NewArchiver compiles archive options. Malformed patterns fail with ErrInvalidPattern.
func NewArchiver(opts ArchiveOptions) (*Archiver, error) {
	opts.applyDefaults()

	selector, err := NewSelector(opts.Includes, opts.Excludes)
	if err != nil {
		return nil, fmt.Errorf("compile selector: %w", err)
	}

	executable, err := compilePatterns(opts.Executable)
	if err != nil {
		return nil, fmt.Errorf("compile executable patterns: %w", err)
	}

	var hardLinks *Selector
	if len(opts.HardLinkIncludes) > 0 || len(opts.HardLinkExcludes) > 0 {
		hardLinks, err = NewSelector(opts.HardLinkIncludes, opts.HardLinkExcludes)
		if err != nil {
			return nil, fmt.Errorf("compile hard-link selector: %w", err)
		}
	}

	ignore, err := newIgnoreMatcher(opts.IgnoreRules, opts.IgnoreMatcherOptions)
	if err != nil {
		return nil, err
	}

	return &Archiver{
		opts:       opts,
		selector:   selector,
		executable: executable,
		hardLinks:  hardLinks,
		ignore:     ignore,
	}, nil
}

// Archive writes sources into dest. Format is detected from dest extension.
// Sources are closed before return. Partially written output is left on failure.
func (a *Archiver) Archive(ctx context.Context, dest string, sources ...Source) (*ArchiveResult, error) {
	format, err := DetectFormat(dest)
	if err != nil {
		closeSources(sources)
		return nil, err
	}

	f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		closeSources(sources)
		return nil, fmt.Errorf("create archive file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	res, err := a.ArchiveTo(ctx, f, format, sources...)
	if err != nil {
		return nil, err
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close archive file: %w", err)
	}
	f = nil

	return res, nil
}

// ArchiveDirs writes directory trees into dest using one directory source.
func (a *Archiver) ArchiveDirs(ctx context.Context, dest string, dirs ...string) (*ArchiveResult, error) {
	return a.Archive(ctx, dest, NewDirectorySource(dirs...))
}

// ArchiveTo encodes sources into w using format. Sources are closed before return.
func (a *Archiver) ArchiveTo(ctx context.Context, w io.Writer, format Format, sources ...Source) (*ArchiveResult, error) {
	startedAt := time.Now()

	if w == nil {
		closeSources(sources)
		return nil, ErrNilWriter
	}

	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	for _, src := range sources {
		if src == nil {
			closeSources(sources)
			return nil, ErrNilSource
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	digester := digest.Canonical.Digester()
	counter := &countingWriter{w: io.MultiWriter(w, digester.Hash())}
	bw := bufio.NewWriterSize(counter, archiveWriteBufferSize)

	aw, err := newWriter(bw, format, writerConfig{
		hardLinks: a.hardLinks,
		longNames: a.opts.PosixLongFileMode,
	})
	if err != nil {
		closeSources(sources)
		return nil, err
	}

	run := &archiveRun{
		a:       a,
		aw:      aw,
		paths:   make(map[string]bool),
		res:     &ArchiveResult{},
		pending: make(map[string]*wireEntry),
	}

	runErr := run.run(ctx, sources)
	closeErr := closeSources(sources)
	if runErr != nil {
		_ = aw.Close()
		return nil, runErr
	}

	if err := aw.Close(); err != nil {
		return nil, err
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("flush archive: %w", err)
	}

	if closeErr != nil {
		return nil, closeErr
	}

	run.res.Bytes = counter.n
	run.res.Digest = digester.Digest().String()
	run.res.Duration = time.Since(startedAt)

	a.opts.Logger.Info("archive written",
		"format", format,
		"entries", run.res.Entries,
		"bytes", run.res.Bytes,
		"digest", run.res.Digest,
		"duration", run.res.Duration,
	)

	return run.res, nil
}

// archiveRun is state owned by one archive call.
type archiveRun struct {
	a  *Archiver
	aw archiveWriter
	// paths marks explicit entries true and synthesized directories false.
	paths map[string]bool
	// pending buffers entries by final path when normalizing.
	pending map[string]*wireEntry
	res     *ArchiveResult
}

// run walks all sources and writes (or buffers) their entries.
func (r *archiveRun) run(ctx context.Context, sources []Source) error {
	for _, src := range sources {
		for entry, err := range src.Entries() {
			if err != nil {
				return err
			}

			if err := ctx.Err(); err != nil {
				return err
			}

			if err := r.add(src.IsDir(), entry); err != nil {
				return err
			}
		}
	}

	if !r.a.opts.Normalize {
		return nil
	}

	names := make([]string, 0, len(r.pending))
	for name := range r.pending {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.write(r.pending[name]); err != nil {
			return err
		}
	}

	return nil
}

// add applies selection and path rewriting to one source entry.
func (r *archiveRun) add(fromDir bool, entry Entry) error {
	opts := &r.a.opts
	original := entry.Name()

	if !r.a.selector.Include(original) || !r.a.ignore.Included(original, entry.IsDir()) {
		return nil
	}

	if fromDir && opts.Flatten && entry.IsDir() {
		return nil
	}

	name := r.rewrite(fromDir, original)
	executable := matchAny(r.a.executable, normalizePathForMatching(original))

	if entry.IsDir() && !strings.HasSuffix(name, "/") {
		name += "/"
	}

	name = trimEntryLead(name)
	if name == "" || name == "/" {
		return nil
	}

	for _, dir := range parentDirNames(name) {
		if _, seen := r.paths[dir]; seen {
			continue
		}

		r.paths[dir] = false
		synthetic, err := NewDirectoryEntry(dir)
		if err != nil {
			return err
		}

		e := r.aw.wrap(dir, synthetic, false)
		e.synthesized = true
		if err := r.emit(e); err != nil {
			return err
		}
	}

	if explicit, seen := r.paths[name]; seen {
		if explicit {
			return fmt.Errorf("%w: %s", ErrDuplicateEntryPath, name)
		}

		return nil
	}

	r.paths[name] = true
	e := r.aw.wrap(name, entry, executable)
	if e.kind == KindHardLink {
		// Link records from repackaged archives must follow their renamed source.
		e.linkTarget = trimEntryLead(r.rewrite(fromDir, e.linkTarget))
	}

	return r.emit(e)
}

// rewrite applies root stripping, flattening and prefix to source entry name.
func (r *archiveRun) rewrite(fromDir bool, name string) string {
	opts := &r.a.opts
	if fromDir && opts.StripRoot {
		name = stripRoot(name)
	}

	if fromDir && opts.Flatten {
		name = baseName(name)
	}

	return opts.Prefix + name
}

// emit writes entry immediately or buffers it when normalizing.
func (r *archiveRun) emit(e *wireEntry) error {
	if !r.a.opts.Normalize {
		e.modTime = e.src.ModTime()
		if e.modTime.IsZero() {
			e.modTime = time.Now()
		}

		return r.write(e)
	}

	e.modTime = normalizedModTime(e.name)
	if _, ok := e.src.(streamEntry); ok {
		detached, err := detachEntry(e.src)
		if err != nil {
			return err
		}
		e.src = detached
	}

	r.pending[e.name] = e
	return nil
}

// write encodes one entry and updates counters.
func (r *archiveRun) write(e *wireEntry) error {
	if err := r.aw.write(e); err != nil {
		return err
	}

	switch {
	case e.synthesized:
		r.res.Directories++
	case e.kind == KindHardLink:
		r.res.HardLinks++
		r.res.Entries++
	case e.kind == KindSymlink:
		r.res.Symlinks++
		r.res.Entries++
	default:
		r.res.Entries++
	}

	r.a.opts.Logger.Debug("entry written", "path", e.name, "kind", e.kind, "size", e.size)

	if r.a.opts.OnEntryDone != nil {
		r.a.opts.OnEntryDone(ArchiveEntryProgress{
			Path:        e.name,
			LinkTarget:  e.linkTarget,
			Kind:        e.kind,
			Size:        e.size,
			Mode:        e.mode,
			Synthesized: e.synthesized,
		})
	}

	return nil
}

// normalizedModTime returns fixed timestamp for entry name.
func normalizedModTime(name string) time.Time {
	t := time.UnixMilli(NormalizedModTimeMillis)
	if strings.HasSuffix(name, ".class") {
		t = t.Add(ClassFileTimeOffset)
	}

	return t
}

// closeSources closes every non-nil source and returns the first error.
func closeSources(sources []Source) error {
	var first error
	for _, src := range sources {
		if src == nil {
			continue
		}

		if err := src.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// countingWriter counts bytes passed to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
