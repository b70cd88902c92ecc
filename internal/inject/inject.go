// Package inject places an "Open in Colab" badge cell at the top of every
// notebook under a root directory.
package inject

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/nbbadge/internal/apperr"
	"github.com/starford/nbbadge/internal/badge"
	"github.com/starford/nbbadge/internal/checksum"
	"github.com/starford/nbbadge/internal/notebook"
	"github.com/starford/nbbadge/internal/storage"
)

// cellIDLength matches the length Jupyter uses for generated cell ids.
const cellIDLength = 8

// Options controls a batch run.
type Options struct {
	Recursive bool
	// Workers bounds the number of notebooks processed at once. Values
	// below 1 mean 1, which also gives a strictly ordered traversal.
	Workers int
	// KeepGoing isolates per-file failures instead of aborting the batch.
	KeepGoing bool
	// DryRun computes results without writing anything.
	DryRun bool
}

// Injector rewrites notebooks so their first cell is a badge cell.
type Injector struct {
	store    storage.Provider
	builder  *badge.Builder
	detector badge.Detector
	logger   *slog.Logger
}

// Option configures an Injector.
type Option func(*Injector)

// WithDetector overrides the default substring detector.
func WithDetector(d badge.Detector) Option {
	return func(in *Injector) {
		in.detector = d
	}
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(in *Injector) {
		in.logger = l
	}
}

// New creates an Injector over store that links notebooks via builder.
func New(store storage.Provider, builder *badge.Builder, opts ...Option) *Injector {
	in := &Injector{
		store:    store,
		builder:  builder,
		detector: badge.SubstringDetector{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Builder returns the badge builder.
func (in *Injector) Builder() *badge.Builder {
	return in.builder
}

// Inject processes every notebook under the root.
//
// By default the first failure aborts the batch: notebooks already handled
// keep their new content and the rest are left untouched. With KeepGoing set,
// failures are collected in the report and ErrBatchFailed is returned once
// all notebooks have been tried.
func (in *Injector) Inject(ctx context.Context, opts Options) (*Report, error) {
	paths, err := in.store.List(opts.Recursive)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	report := &Report{Succeeded: []FileResult{}, Failed: []Failure{}}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, p := range paths {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res, err := in.ProcessFile(gCtx, p, opts.DryRun)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !opts.KeepGoing {
					return err
				}
				in.logger.Warn("inject: file failed", slog.String("path", p), slog.String("error", err.Error()))
				report.Failed = append(report.Failed, Failure{Path: p, Err: err})
				return nil
			}
			report.Succeeded = append(report.Succeeded, *res)
			return nil
		})
	}

	err = g.Wait()
	report.sort()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return report, err
	}

	in.logger.Info("inject: finished",
		slog.Int("processed", len(report.Succeeded)),
		slog.Int("written", report.Written()),
		slog.Int("failed", len(report.Failed)),
		slog.Bool("dry_run", opts.DryRun))

	if len(report.Failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d notebooks failed", apperr.ErrBatchFailed, len(report.Failed), len(paths))
	}
	return report, nil
}

// ProcessFile replaces the leading badge cell of the notebook at rel (if
// any) with a freshly built one and saves the result. The file is not
// rewritten when its content would not change.
func (in *Injector) ProcessFile(ctx context.Context, rel string, dryRun bool) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := in.store.Read(rel)
	if err != nil {
		return nil, err
	}
	doc, err := notebook.Decode(data, notebook.Version)
	if err != nil {
		return nil, fmt.Errorf("inject: %s: %w", rel, err)
	}

	res := &FileResult{Path: rel, Href: in.builder.Link(rel)}

	if len(doc.Cells) > 0 && in.detector.IsBadgeCell(doc.Cells[0]) {
		doc.RemoveCell(0)
		res.Removed = true
		in.logger.Info("inject: removed badge cell", slog.String("path", rel))
	}

	cell := notebook.NewMarkdownCell(in.builder.Source(rel))
	if doc.SupportsCellIDs() {
		cell.SetID(checksum.Short([]byte(rel), cellIDLength))
	}
	doc.InsertCell(0, cell)
	res.Cells = len(doc.Cells)

	out, err := notebook.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("inject: %s: %w", rel, err)
	}
	res.Checksum = checksum.Sum(out)

	if !dryRun && res.Checksum != checksum.Sum(data) {
		if err := in.store.Write(rel, out); err != nil {
			return nil, err
		}
		res.Written = true
	}

	in.logger.Info("inject: added badge cell",
		slog.String("path", rel),
		slog.String("href", res.Href),
		slog.Bool("written", res.Written))
	return res, nil
}
