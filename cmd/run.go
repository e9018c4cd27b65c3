package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"mvtfilter/internal/archive"
	"mvtfilter/internal/compressio"
	"mvtfilter/internal/config"
	"mvtfilter/internal/filterdoc"
	"mvtfilter/internal/pipeline"
	"mvtfilter/internal/spatialindex"
	"mvtfilter/internal/tilefilter"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run <input.pmtiles> <output.mbtiles>",
	Short: "Filter a PMTiles archive into an MBTiles archive",
	Args:  cobra.ExactArgs(2),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the full pipeline but skip writing the output archive")
}

func runRun(cmd *cobra.Command, args []string) error {
	v.Set("input", args[0])
	v.Set("output", args[1])
	v.Set("dry_run", dryRun)

	cfg, err := config.Load(v)
	if err != nil {
		return newUsageError("%w", err)
	}

	log := newLogger(cfg.Logging.Verbose, cfg.Logging.Format)

	var index *spatialindex.Index
	if cfg.Filter != "" {
		data, err := os.ReadFile(cfg.Filter)
		if err != nil {
			return newUsageError("reading filter document %q: %w", cfg.Filter, err)
		}
		doc, err := filterdoc.Load(data)
		if err != nil {
			return newUsageError("compiling filter document %q: %w", cfg.Filter, err)
		}
		index = spatialindex.New(doc)
		log.WithField("rules", len(doc.Rules)).Info("loaded filter document")
	} else {
		log.Info("no filter document given; tiles pass through unmodified")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dir, file := filepath.Split(cfg.Input)
	if dir == "" {
		dir = "."
	}
	src, err := archive.OpenPMTiles(ctx, dir, file)
	if err != nil {
		return fmt.Errorf("opening input archive: %w", err)
	}
	defer src.Close()

	meta, err := src.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("reading input archive metadata: %w", err)
	}
	applyOverrides(meta, cfg)

	var sink archive.Sink
	if !cfg.DryRun {
		sink, err = archive.NewMBTiles(cfg.Output)
		if err != nil {
			return fmt.Errorf("opening output archive: %w", err)
		}
		if err := sink.Open(meta); err != nil {
			return fmt.Errorf("initializing output archive: %w", err)
		}
	}

	tr := tilefilter.New(index, compressio.Parse(meta.Compression))

	stats, runErr := pipeline.Run(ctx, src, dryRunSink{sink}, tr, pipeline.Options{
		Concurrency: cfg.Concurrency,
		Lenient:     cfg.Lenient,
		DryRun:      cfg.DryRun,
		Progress:    cfg.Progress,
		Logger:      log,
	})

	if runErr != nil {
		if sink != nil {
			if abortErr := sink.Abort(); abortErr != nil {
				log.WithError(abortErr).Error("failed to clean up partial output after run failure")
			}
		}
		return fmt.Errorf("run failed: %w", runErr)
	}

	if sink != nil {
		if err := sink.Close(); err != nil {
			return fmt.Errorf("finalizing output archive: %w", err)
		}
	}

	log.WithFields(map[string]interface{}{
		"total":      stats.Total,
		"processed":  stats.Processed,
		"dropped":    stats.Dropped,
		"failed":     stats.Failed,
		"bytes_out":  stats.BytesOut,
		"elapsed":    stats.Elapsed.String(),
		"throughput": stats.Throughput(),
	}).Info("run complete")

	return nil
}

func applyOverrides(meta *archive.TileJSON, cfg *config.Config) {
	if cfg.Name != "" {
		meta.Name = cfg.Name
	}
	if cfg.Description != "" {
		meta.Description = cfg.Description
	}
	if cfg.Attribution != "" {
		meta.Attribution = cfg.Attribution
	}
}

// dryRunSink adapts a possibly-nil archive.Sink so pipeline.Run always
// receives a non-nil Sink, even in --dry-run mode where no output file was
// opened; with pipeline.Options.DryRun set, Run never calls Put, and every
// method here is a no-op when the wrapped sink is nil.
type dryRunSink struct {
	sink archive.Sink
}

func (d dryRunSink) Open(meta *archive.TileJSON) error {
	if d.sink == nil {
		return nil
	}
	return d.sink.Open(meta)
}

func (d dryRunSink) Put(z, x, y int, data []byte) error {
	if d.sink == nil {
		return nil
	}
	return d.sink.Put(z, x, y, data)
}

func (d dryRunSink) Close() error {
	if d.sink == nil {
		return nil
	}
	return d.sink.Close()
}

func (d dryRunSink) Abort() error {
	if d.sink == nil {
		return nil
	}
	return d.sink.Abort()
}
