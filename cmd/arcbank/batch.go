package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jchantrell/arcbank/internal/catalog"
	"github.com/jchantrell/arcbank/internal/discover"
	"github.com/jchantrell/arcbank/internal/export"
	"github.com/jchantrell/arcbank/internal/scene"
	"github.com/jchantrell/arcbank/internal/utils"
)

// errSkipped marks an input that was read but had nothing to convert.
var errSkipped = errors.New("nothing to convert")

type BatchStats struct {
	StartTime    time.Time
	EndTime      time.Time
	TotalFiles   int
	Processed    int
	Skipped      int
	Failed       int
	Warnings     int
	FilesWritten int
	BytesWritten int64
}

// job is one input file and the catalog record being filled for it.
type job struct {
	path   string
	record *catalog.Archive
	out    *export.Exporter
}

// addWarnings stores scene warnings on the record.
func (j *job) addWarnings(ws []scene.Warning) {
	for _, w := range ws {
		j.record.Warnings = append(j.record.Warnings, catalog.Warning{
			Kind:    w.Kind.String(),
			Name:    w.Name,
			Message: w.Message,
		})
	}
}

// outputFor returns the exporter for an input: the configured output
// directory, or the input's own directory.
func outputFor(input string) *export.Exporter {
	dir := cfg.OutputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return export.NewExporter(dir)
}

// baseName returns the input's file name without its extension.
func baseName(input string) string {
	return discover.ChangeExtension(filepath.Base(input), "")
}

// collect expands args into the files matching patterns.
func collect(args []string, patterns []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no input files or directories given")
	}
	filter, err := discover.NewFilter(patterns...)
	if err != nil {
		return nil, err
	}
	return discover.Collect(args, filter)
}

// runBatch calls process for every file, logging and counting failures
// instead of stopping, and records each file in the catalog when one is
// configured.
func runBatch(ctx context.Context, kind string, files []string, process func(j *job) error) error {
	stats := &BatchStats{
		StartTime:  time.Now(),
		TotalFiles: len(files),
	}

	if len(files) == 0 {
		slog.Info("No input files matched", "kind", kind)
		return nil
	}

	var cat *catalog.Catalog
	if cfg.Catalog != "" {
		var err error
		cat, err = catalog.Open(ctx, catalog.DefaultOptions(cfg.Catalog))
		if err != nil {
			return fmt.Errorf("opening catalog: %w", err)
		}
		defer cat.Close()
	}

	slog.Info("Processing files", "kind", kind, "count", len(files))
	progress := utils.NewProgress(len(files), !(noProgress || cfg.LogFormat == "json" || cfg.LogLevel == "debug"))

	for i, path := range files {
		select {
		case <-ctx.Done():
			slog.Warn("Processing canceled")
			return ctx.Err()
		default:
		}

		progress.Update(i+1, filepath.Base(path))

		j := &job{
			path:   path,
			record: &catalog.Archive{Path: path, Kind: kind, Status: catalog.StatusOK},
			out:    outputFor(path),
		}
		if hash, err := hashFile(path); err == nil {
			j.record.SourceHash = hash
		}

		err := process(j)
		switch {
		case errors.Is(err, errSkipped):
			slog.Info("Skipped file", "path", path, "reason", err)
			j.record.Status = catalog.StatusSkipped
			stats.Skipped++
		case err != nil:
			slog.Error("Failed to process file", "path", path, "error", err)
			j.record.Status = catalog.StatusFailed
			j.record.Err = err
			stats.Failed++
		default:
			stats.Processed++
		}

		for _, f := range j.out.Files() {
			j.record.Files = append(j.record.Files, catalog.File(f))
			stats.BytesWritten += f.Size
		}
		stats.FilesWritten += len(j.out.Files())
		stats.Warnings += len(j.record.Warnings)

		if cat != nil {
			if _, err := cat.Record(ctx, j.record); err != nil {
				slog.Error("Failed to record file in catalog", "path", path, "error", err)
			}
		}
	}

	progress.Finish()
	stats.EndTime = time.Now()
	printStats(stats)

	return nil
}

func printStats(stats *BatchStats) {
	duration := stats.EndTime.Sub(stats.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var rate float64
	if seconds := duration.Seconds(); seconds > 0 {
		rate = float64(stats.Processed+stats.Skipped+stats.Failed) / seconds
	}

	fmt.Printf("Files processed: %d/%d\n", stats.Processed, stats.TotalFiles)
	fmt.Printf("Skipped: %d\n", stats.Skipped)
	fmt.Printf("Failed: %d\n", stats.Failed)
	fmt.Printf("Warnings: %d\n", stats.Warnings)
	fmt.Printf("Files written: %s (%s)\n", utils.Number(int64(stats.FilesWritten)), utils.Bytes(stats.BytesWritten))
	fmt.Printf("Duration: %s\n", utils.Duration(duration))
	fmt.Printf("Processing rate: %s files/sec\n", utils.Rate(rate))
	fmt.Printf("Memory usage: %.2fmb\n", float64(memStats.Alloc)/1024.0/1024.0)
	if cfg.Catalog != "" {
		fmt.Printf("Try running: arcbank query --catalog %s --tables\n", cfg.Catalog)
	}
}

func hashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
