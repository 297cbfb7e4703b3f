package main

import (
	"fmt"
	"log"
	"sort"

	"github.com/railfield-data/trainset.report/internal/archive"
	"github.com/railfield-data/trainset.report/internal/config"
	"github.com/railfield-data/trainset.report/internal/dataset"
	"github.com/railfield-data/trainset.report/internal/fsutil"
	"github.com/railfield-data/trainset.report/internal/manifest"
	"github.com/railfield-data/trainset.report/internal/monitoring"
)

// runExtract walks the configured data directory, extracts samples from
// every archive, writes the patches into per-label directories, and (when a
// db path is configured) records the run in the sample index.
func runExtract(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	monitoring.SetVerbose(cfg.GetVerbose())

	extractCfg := archive.Config{
		Labels:        cfg.GetLabels(),
		Size:          cfg.GetSize(),
		DPT:           cfg.GetDPT(),
		Strict:        cfg.GetStrict(),
		RemapTrainEnd: cfg.GetRemapTrainEnd(),
	}

	res, err := dataset.BuildFromDir(cfg.GetDataDir(), extractCfg)
	if err != nil {
		return err
	}

	paths, err := res.WriteFiles(fsutil.OSFileSystem{}, cfg.GetOutputDir())
	if err != nil {
		return err
	}

	if dbPath := cfg.GetDBPath(); dbPath != "" {
		db, err := dataset.OpenDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		store := dataset.NewStore(db, nil)
		runID, err := store.RecordResult(res, paths, cfg.GetSize(), cfg.GetDPT(), cfg.GetLabels())
		if err != nil {
			return err
		}
		log.Printf("indexed run %s in %s", runID, dbPath)
	}

	labels := make([]string, 0, len(res.LabelCounts))
	for l := range res.LabelCounts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		log.Printf("  %-20s %d samples", l, res.LabelCounts[l])
	}
	log.Printf("extracted %d samples to %s (%d archives failed)", res.Len(), cfg.GetOutputDir(), len(res.Failures))
	for _, f := range res.Failures {
		log.Printf("  failed: %s: %v", f.Path, f.Err)
	}
	return nil
}

// runInspect prints the calibration summary of one archive's manifest.
func runInspect(path string) error {
	if path == "" {
		return fmt.Errorf("inspect needs an archive path")
	}

	f, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	m := f.Manifest()
	fmt.Printf("archive:     %s\n", f.Name())
	fmt.Printf("layout:      %s (scale %s, gauge %.2fmm)\n", m.Layout.Name, m.Layout.Scale, m.GaugeMM())
	fmt.Printf("camera:      %dx%d %s\n", m.Camera.Resolution.Width, m.Camera.Resolution.Height, m.Camera.Model)
	fmt.Printf("images:      %d\n", m.NumberOfImages())
	fmt.Printf("calibration: %d markers\n", len(m.Calibration))
	if dpt := m.DotsPerTrack(); dpt == manifest.Uncalibrated {
		fmt.Printf("density:     uncalibrated\n")
	} else {
		fmt.Printf("density:     %.0f dots per track\n", dpt)
	}
	for _, w := range m.Warnings {
		fmt.Printf("warning:     %s\n", w)
	}
	return nil
}
