// Package pipeline drives the concurrent tile transformation run: a
// bounded-channel worker pool pulls tiles from an archive.Source, runs
// each through a tilefilter.Transformer, and hands surviving tiles to a
// single archive.Sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mvtfilter/internal"
	"mvtfilter/internal/archive"
	"mvtfilter/internal/tilefilter"
)

// Options configures a Run.
type Options struct {
	Concurrency int  // worker count; <=0 means runtime.NumCPU()
	Lenient     bool // decode/decompress failures pass the tile through unmodified instead of aborting the run
	DryRun      bool // run the full pipeline but skip Sink.Put
	Progress    bool // log periodic progress lines
	Logger      *logrus.Logger
}

// Stats summarizes a completed (or aborted) run.
type Stats struct {
	Total     int
	Processed int
	Dropped   int
	Failed    int
	BytesOut  int64
	Elapsed   time.Duration
}

func (s Stats) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Total) / s.Elapsed.Seconds()
}

type tileResult struct {
	tile archive.RawTile
	res  *tilefilter.Result
	err  error
}

// Run streams every tile from src through tr and into sink, respecting
// ctx cancellation. sink.Open must already have been called by the
// caller (it needs source-derived metadata with CLI overrides applied
// before the run starts).
func Run(ctx context.Context, src archive.Source, sink archive.Sink, tr *tilefilter.Transformer, opts Options) (Stats, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tiles, srcErrs := src.Tiles(ctx)
	results := make(chan tileResult, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case tile, ok := <-tiles:
					if !ok {
						return
					}
					res, err := tr.Transform(tile.Z, tile.X, tile.Y, tile.Data)
					if err != nil && opts.Lenient && isDecodeError(err) {
						log.WithFields(logrus.Fields{"z": tile.Z, "x": tile.X, "y": tile.Y, "error": err}).
							Warn("lenient mode: passing tile through unmodified after decode error")
						res, err = &tilefilter.Result{Data: tile.Data}, nil
					}
					select {
					case results <- tileResult{tile: tile, res: res, err: err}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var stats Stats
	var firstErr error
	progressTicker := time.NewTicker(2 * time.Second)
	defer progressTicker.Stop()
	if !opts.Progress {
		progressTicker.Stop()
	}

	resultsCh := results
	errsCh := srcErrs
	for resultsCh != nil || errsCh != nil {
		select {
		case r, ok := <-resultsCh:
			if !ok {
				resultsCh = nil
				continue
			}
			stats.Total++
			if r.err != nil {
				stats.Failed++
				if firstErr == nil {
					firstErr = fmt.Errorf("pipeline: tile %d/%d/%d: %w", r.tile.Z, r.tile.X, r.tile.Y, r.err)
					cancel()
				}
				continue
			}
			if r.res.Dropped {
				stats.Dropped++
				continue
			}
			stats.Processed++
			stats.BytesOut += int64(len(r.res.Data))
			if !opts.DryRun {
				if err := sink.Put(r.tile.Z, r.tile.X, r.tile.Y, r.res.Data); err != nil {
					if firstErr == nil {
						firstErr = internal.NewError(internal.ErrorCodeWrite,
							fmt.Sprintf("write tile %d/%d/%d", r.tile.Z, r.tile.X, r.tile.Y), err)
						cancel()
					}
				}
			}
		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			if err != nil && firstErr == nil {
				firstErr = internal.NewError(internal.ErrorCodeProcessing, "reading source", err)
				cancel()
			}
		case <-progressTicker.C:
			log.WithFields(logrus.Fields{
				"processed": stats.Processed,
				"dropped":   stats.Dropped,
				"failed":    stats.Failed,
			}).Info("progress")
		}
	}

	stats.Elapsed = time.Since(start)
	return stats, firstErr
}

// isDecodeError reports whether err is a per-tile decompress/decode
// failure, the only transform failure kind lenient mode is allowed to
// paper over; a recompress (write) failure still aborts the run.
func isDecodeError(err error) bool {
	var ie *internal.Error
	return errors.As(err, &ie) && ie.Code == internal.ErrorCodeDecode
}
