package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mmapmovie/pkg/analysis"
	"mmapmovie/pkg/config"
	"mmapmovie/pkg/export"
	"mmapmovie/pkg/mmapmovie"
	"mmapmovie/pkg/movie"
	"mmapmovie/pkg/partition"
	"mmapmovie/pkg/source"
	"mmapmovie/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing 16-bit grayscale movie frames (PNG or JPEG)")
	configPath := flag.String("config", "mmapmovie.yaml", "YAML configuration file (defaults are used if missing)")
	initConfig := flag.String("init-config", "", "Write a default configuration file to this path and exit")
	roiFlag := flag.String("roi", "", "Single region to extract as rowStart,rowEnd,colStart,colEnd (default: tile the frame)")
	tileRows := flag.Int("tile-rows", 0, "Tile height (overrides config)")
	tileCols := flag.Int("tile-cols", 0, "Tile width (overrides config)")
	workers := flag.Int("workers", -1, "Number of concurrent extractions (overrides config)")
	h5File := flag.String("h5", "", "HDF5 file for extracted patches (overrides config)")
	saveFrames := flag.Bool("frames", false, "Save a JPEG preview of every patch frame")
	keepFile := flag.Bool("keep", false, "Keep the materialized movie file after the run")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if *initConfig != "" {
		if err := config.CreateDefaultConfigFile(*initConfig); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *initConfig)
		return
	}

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *tileRows > 0 {
		cfg.Partition.TileRows = *tileRows
	}
	if *tileCols > 0 {
		cfg.Partition.TileCols = *tileCols
	}
	if *workers >= 0 {
		cfg.Partition.Workers = *workers
	}
	if *h5File != "" {
		cfg.Output.H5File = *h5File
	}
	cfg.Output.SaveFrames = cfg.Output.SaveFrames || *saveFrames
	cfg.Storage.KeepFile = cfg.Storage.KeepFile || *keepFile
	cfg.Output.Verbose = cfg.Output.Verbose || *verbose
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *inputDir, *roiFlag); err != nil {
		stop()
		log.Fatalf("mmapmovie failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, inputDir, roiFlag string) (err error) {
	// Step 1: Open the frame sequence
	fmt.Println("Step 1: Scanning input frames...")
	seq, err := source.OpenImageSequence(inputDir)
	if err != nil {
		return fmt.Errorf("failed to open input frames: %w", err)
	}
	fmt.Printf("Found %d frames of %dx%d\n", seq.NumFrames(), seq.NumRows(), seq.NumCols())

	// Step 2: Materialize the movie to a memory-mapped file
	moviePath := cfg.MoviePath()
	fmt.Printf("Step 2: Materializing movie to %s...\n", moviePath)
	start := time.Now()
	md, err := mmapmovie.MaterializeWithMetadata(seq, moviePath)
	if !cfg.Storage.KeepFile || err != nil {
		defer func() {
			if rmErr := mmapmovie.Remove(moviePath); rmErr != nil {
				slog.Warn("mmapmovie: failed to remove movie file", "path", moviePath, "error", rmErr)
			}
		}()
	}
	if err != nil {
		return err
	}
	fmt.Printf("Materialized %d bytes in %.2f seconds\n", md.NumBytes(), time.Since(start).Seconds())

	// Step 3: Decide which regions to extract
	fmt.Println("Step 3: Selecting regions...")
	var rois []movie.ROI
	if roiFlag != "" {
		roi, err := parseROI(roiFlag)
		if err != nil {
			return err
		}
		rois = []movie.ROI{roi}
	} else {
		rois, err = partition.Grid(md.NumRows, md.NumCols,
			cfg.Partition.TileRows, cfg.Partition.TileCols, cfg.Partition.Overlap)
		if err != nil {
			return fmt.Errorf("failed to partition frame: %w", err)
		}
	}

	// Step 4: Extract patches in parallel
	fmt.Printf("Step 4: Extracting %d patches with %d workers...\n", len(rois), cfg.Partition.Workers)
	start = time.Now()
	extractor := &partition.Extractor{Path: moviePath, Meta: md, Workers: cfg.Partition.Workers}
	patches, err := extractor.ExtractAll(ctx, rois)
	if err != nil {
		return err
	}
	fmt.Printf("Extracted %d patches in %.2f seconds\n\n", len(patches), time.Since(start).Seconds())

	// Step 5: Report and persist each patch
	fmt.Println("Step 5: Summarizing patches...")
	for i, patch := range patches {
		s := analysis.Summarize(patch)
		fmt.Printf("Patch %3d %s: %dx%dx%d  min=%.1f max=%.1f mean=%.2f std=%.2f median=%.1f\n",
			i, rois[i], patch.Rows, patch.Cols, patch.Frames, s.Min, s.Max, s.Mean, s.StdDev, s.Median)

		if cfg.Output.SaveFrames {
			dir := filepath.Join(cfg.Output.Dir, fmt.Sprintf("patch_%03d", i))
			if err := visualization.NewViewer(patch).SaveFrameSequence(dir); err != nil {
				log.Printf("Warning: Failed to save frames of patch %d: %v", i, err)
			}
		}

		if cfg.Output.H5File != "" {
			h5Path := patchH5Path(cfg, i, len(patches))
			if err := os.MkdirAll(filepath.Dir(h5Path), 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			if err := export.SavePatchH5(patch, h5Path, cfg.Output.PatchKey, cfg.Output.TraceKey); err != nil {
				return fmt.Errorf("failed to export patch %d: %w", i, err)
			}
		}
	}

	if cfg.Output.H5File != "" {
		fmt.Printf("\nHDF5 output written under: %s\n", cfg.Output.Dir)
	}
	if cfg.Storage.KeepFile {
		fmt.Printf("Movie file kept at: %s (metadata: %s)\n", moviePath, mmapmovie.MetadataPath(moviePath))
	}
	return nil
}

// patchH5Path names the HDF5 file for patch i; with several patches each
// gets its own file with a tile suffix.
func patchH5Path(cfg *config.Config, i, total int) string {
	name := cfg.Output.H5File
	if total > 1 {
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s_tile_%03d%s", strings.TrimSuffix(name, ext), i, ext)
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.Output.Dir, name)
}

// parseROI parses "rowStart,rowEnd,colStart,colEnd"
func parseROI(s string) (movie.ROI, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return movie.ROI{}, fmt.Errorf("invalid roi %q: expected rowStart,rowEnd,colStart,colEnd", s)
	}
	var bounds [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return movie.ROI{}, fmt.Errorf("invalid roi %q: %w", s, err)
		}
		bounds[i] = v
	}
	return movie.ROI{RowStart: bounds[0], RowEnd: bounds[1], ColStart: bounds[2], ColEnd: bounds[3]}, nil
}
