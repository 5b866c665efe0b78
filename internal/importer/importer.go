// Package importer drives batch extraction: discover report files, pick a
// layout, extract and balance each shift, and hand the payloads to a sink.
package importer

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hongsheng-mining/mill-cli/internal/balance"
	"github.com/hongsheng-mining/mill-cli/internal/extract"
	"github.com/hongsheng-mining/mill-cli/internal/grid"
	"github.com/hongsheng-mining/mill-cli/internal/layout"
	"github.com/hongsheng-mining/mill-cli/internal/model"
	"github.com/hongsheng-mining/mill-cli/internal/shiftdate"
)

// Sink receives canonical payloads, one per extracted shift.
type Sink interface {
	Submit(ctx context.Context, report model.ReportPayload) error
}

// Options configures a batch run.
type Options struct {
	Templates   []layout.Template
	Resolver    shiftdate.Resolver
	Concurrency int // files processed in parallel; min 1
}

// Summary counts the outcome of a batch run. Skipped files are ones with
// no matching layout or no resolvable date; Failed covers unreadable files
// and sink errors.
type Summary struct {
	Files   int
	Records int
	Skipped int
	Failed  int
}

// Importer processes report files and submits the results to a sink.
type Importer struct {
	sink Sink
	opts Options
}

// New creates an Importer.
func New(sink Sink, opts Options) *Importer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Importer{sink: sink, opts: opts}
}

// Discover walks root recursively and returns all .xlsx report files in
// sorted order, skipping Excel lock files (~$ prefix).
func Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "importer: walk %s", root)
	}
	return files, nil
}

// Run processes the files with bounded parallelism. Per-file and per-shift
// failures are logged and counted but never abort the batch; only context
// cancellation stops the run early.
func (imp *Importer) Run(ctx context.Context, files []string) (Summary, error) {
	log := zap.L().With(zap.String("component", "importer"))
	log.Info("processing batch",
		zap.Int("files", len(files)),
		zap.Int("concurrency", imp.opts.Concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.opts.Concurrency)

	var records, skipped, failed atomic.Int64

	for _, path := range files {
		path := path
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			n, err := imp.processFile(gctx, path)
			switch {
			case errors.Is(err, shiftdate.ErrUnresolved), errors.Is(err, errNoLayout):
				log.Warn("skipping file", zap.String("file", path), zap.Error(err))
				skipped.Add(1)
			case err != nil:
				log.Error("file failed", zap.String("file", path), zap.Error(err))
				failed.Add(1)
			default:
				records.Add(int64(n))
			}
			return nil // individual failures don't abort the batch
		})
	}

	err := g.Wait()

	sum := Summary{
		Files:   len(files),
		Records: int(records.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	log.Info("batch complete",
		zap.Int("records", sum.Records),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
	return sum, err
}

var errNoLayout = eris.New("importer: no layout template matched")

// processFile extracts, balances and submits every shift in one file,
// returning the number of records submitted.
func (imp *Importer) processFile(ctx context.Context, path string) (int, error) {
	fileName := filepath.Base(path)
	parentDir := filepath.Base(filepath.Dir(path))
	log := zap.L().With(zap.String("file", fileName))

	warn := func(row, col int, raw string) {
		log.Warn("malformed cell treated as 0",
			zap.Int("row", row),
			zap.Int("col", col),
			zap.String("value", raw),
		)
	}

	// Templates may target different sheets; load lazily per sheet index.
	grids := map[int]*grid.Grid{}
	loadSheet := func(idx int) (*grid.Grid, error) {
		if g, ok := grids[idx]; ok {
			return g, nil
		}
		g, err := grid.Load(path, grid.Options{SheetIndex: idx, Warn: warn})
		if err != nil {
			return nil, err
		}
		grids[idx] = g
		return g, nil
	}

	g, err := loadSheet(0)
	if err != nil {
		return 0, err
	}

	tpl, ok := layout.Detect(fileName, g, imp.opts.Templates)
	if !ok {
		return 0, eris.Wrapf(errNoLayout, "file %q", fileName)
	}
	if tpl.SheetIndex != 0 {
		if g, err = loadSheet(tpl.SheetIndex); err != nil {
			return 0, err
		}
	}

	meta := extract.FileMeta{FileName: fileName, ParentDir: parentDir}
	recs, err := extract.Records(g, tpl, meta, imp.opts.Resolver)
	if err != nil {
		return 0, err
	}

	submitted := 0
	for _, rec := range recs {
		rec = balance.Compute(rec)
		if err := imp.sink.Submit(ctx, rec.Payload()); err != nil {
			return submitted, eris.Wrapf(err, "submit %s %s", rec.ShiftDate, rec.ShiftType)
		}
		log.Info("shift submitted",
			zap.String("date", rec.ShiftDate),
			zap.String("shift", rec.ShiftType),
			zap.Float64("recovery_pb", rec.Performance.RecoveryPbPct),
		)
		submitted++
	}

	return submitted, nil
}
