package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"slicelabeler/internal/logging"
	"slicelabeler/internal/models"
	"slicelabeler/internal/tui"
	"slicelabeler/pkg/config"
	"slicelabeler/pkg/loader"
	"slicelabeler/pkg/persistence"
	"slicelabeler/pkg/registry"
	"slicelabeler/pkg/review"
	"slicelabeler/pkg/session"
	"slicelabeler/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "slicelabeler.yaml", "Configuration file (defaults are used if missing)")
	inputDir := flag.String("input", "", "Directory containing the 2D slices (DICOM, JPEG or PNG)")
	outputDir := flag.String("output", "", "Directory for label artifacts, meshes and overlays")
	labelsPath := flag.String("labels", "", "Existing label volume (.npy or .npy.sz) to resume from")
	runReview := flag.Bool("review", true, "Extract per-class meshes and print a summary after annotating")
	reviewOnly := flag.Bool("review-only", false, "Skip the annotator and review the -labels artifact")
	overlays := flag.Bool("overlays", false, "Write a labeled overlay PNG for every annotated slice")
	writeConfig := flag.String("write-config", "", "Write a default configuration file to this path and exit")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *writeConfig)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags given on the command line override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Input.Dir = *inputDir
		case "output":
			cfg.Output.Dir = *outputDir
		case "review":
			cfg.Review.Enabled = *runReview
		}
	})
	if cfg.Input.Dir == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *reviewOnly && *labelsPath == "" {
		log.Fatalf("-review-only needs -labels")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logging.Init(logging.Config{
		Mode:       cfg.Logging.Mode,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		MaxBackups: cfg.Logging.MaxBackups,
	}); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logging.Sync()

	reg, err := cfg.Registry()
	if err != nil {
		log.Fatalf("Invalid classes: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("SLICELABELER - polygon annotation of 3D image volumes")
	fmt.Println("================================")

	// Load the intensity volume
	fmt.Printf("Loading slices from: %s\n", cfg.Input.Dir)
	src := &loader.Source{Dir: cfg.Input.Dir, Extensions: cfg.Input.Extensions}
	volume, err := src.LoadVolume()
	if err != nil {
		logging.L().Error("loading volume failed", zap.String("dir", cfg.Input.Dir), zap.Error(err))
		log.Fatalf("Failed to load slices: %v", err)
	}
	fmt.Printf("Loaded %d slices of %dx%d\n", volume.Depth, volume.Width, volume.Height)

	var labels *models.LabelVolume
	if *labelsPath != "" {
		labels, err = persistence.LoadLabels(*labelsPath)
		if err != nil {
			log.Fatalf("Failed to load labels: %v", err)
		}
		if !labels.Matches(volume) {
			log.Fatalf("Labels in %s do not match the volume shape", *labelsPath)
		}
		fmt.Printf("Resuming from: %s\n", *labelsPath)
	}

	store := persistence.NewFileStore(cfg)
	if !*reviewOnly {
		labels, err = annotate(cfg, volume, labels, reg, store)
		if err != nil {
			log.Fatalf("Annotation failed: %v", err)
		}
	}

	if cfg.Review.Enabled {
		fmt.Println("\nExtracting class surfaces...")
		startTime := time.Now()
		summaries, err := review.Render(volume, labels, reg, review.OptionsFromConfig(cfg))
		if err != nil {
			log.Fatalf("Review failed: %v", err)
		}
		fmt.Printf("Done in %.2f seconds\n\n", time.Since(startTime).Seconds())
		review.WriteSummary(os.Stdout, summaries)
	}

	if *overlays {
		viewer, err := visualization.NewViewer(volume, labels, reg)
		if err != nil {
			log.Fatalf("Failed to create viewer: %v", err)
		}
		dir := filepath.Join(cfg.Output.Dir, cfg.Output.OverlayDir)
		n, err := viewer.SaveOverlaySequence(dir)
		if err != nil {
			log.Printf("Warning: Failed to save overlays: %v", err)
		} else {
			fmt.Printf("\nSaved %d overlays to: %s\n", n, dir)
		}
	}
}

// annotate runs the interactive annotator and returns the label volume as
// the user left it, including edits on the active slice
func annotate(cfg *config.Config, volume *models.Volume, labels *models.LabelVolume, reg *registry.Registry, store *persistence.FileStore) (*models.LabelVolume, error) {
	sess, err := session.New(session.Params{
		Volume:    volume,
		Labels:    labels,
		Registry:  reg,
		Codec:     cfg.CodecOptions(),
		Persister: store,
	})
	if err != nil {
		return nil, err
	}
	viewer, err := visualization.NewViewer(volume, nil, reg)
	if err != nil {
		return nil, err
	}

	logging.L().Info("annotator started",
		zap.Int("slices", volume.Depth),
		zap.Int("classes", len(reg.Classes())))

	m := tui.New(sess, viewer, tui.Options{SavePath: store.LabelsPath()})
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	if err != nil {
		return nil, err
	}
	if fm, ok := final.(tui.Model); ok && fm.Unsaved() {
		fmt.Println("Warning: exited with unsaved changes; they are included in the review but not written")
	}
	return sess.Snapshot()
}
