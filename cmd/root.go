package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"imscale/internal/processor"
	"imscale/internal/tui"
)

const maxReportedFailures = 20

var (
	flagPercent       float64
	flagInputDir      string
	flagOutputDir     string
	flagQuality       int
	flagOptimize      bool
	flagStripMetadata bool
	flagToWebP        bool
	flagWebPLossless  bool
	flagWorkers       int
	flagSkipExisting  bool
	flagNoProgress    bool
)

var rootCmd = &cobra.Command{
	Use:          "imscale",
	Short:        "imscale - batch-resize images by a percent factor",
	Long:         "imscale resizes every image in a directory by a percentage factor,\noptionally converting the outputs to WebP with configurable quality,\nlossless mode, and metadata stripping.",
	SilenceUsage: true,
	RunE:         runScale,
}

func runScale(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := processor.Options{
		Percent:       flagPercent,
		InputDir:      flagInputDir,
		OutputDir:     flagOutputDir,
		Quality:       flagQuality,
		Optimize:      flagOptimize,
		StripMetadata: flagStripMetadata,
		ToWebP:        flagToWebP,
		WebPLossless:  flagWebPLossless,
		Workers:       flagWorkers,
		SkipExisting:  flagSkipExisting,
	}

	var summary processor.Summary
	var runErr error

	if flagNoProgress {
		fmt.Fprintf(os.Stdout, "Scanning for images in: %s\n", flagInputDir)
		summary, runErr = processor.Run(ctx, opts, nil)
	} else {
		updates := make(chan processor.ProgressUpdate, 64)
		model := tui.NewModel(updates)
		program := tea.NewProgram(model)

		uiDone := make(chan struct{})
		go func() {
			_, _ = program.Run()
			close(uiDone)
		}()

		summary, runErr = processor.Run(ctx, opts, updates)
		close(updates)
		<-uiDone
	}

	if runErr != nil {
		return runErr
	}

	if summary.Total == 0 {
		fmt.Fprintln(os.Stdout, "No supported images found.")
		return nil
	}

	rows := []tui.SummaryRow{
		{Label: "Images found", Value: fmt.Sprintf("%d", summary.Total)},
		{Label: "Scaled", Value: fmt.Sprintf("%d", summary.Succeeded)},
		{Label: "Skipped", Value: fmt.Sprintf("%d", summary.Skipped)},
		{Label: "Failed", Value: fmt.Sprintf("%d", summary.Failed)},
		{Label: "Space saved", Value: tui.FormatBytes(summary.BytesSaved)},
	}
	if flagStripMetadata {
		rows = append(rows, tui.SummaryRow{
			Label: "Metadata entries stripped",
			Value: fmt.Sprintf("%d", summary.TagsStripped),
		})
	}
	fmt.Fprintln(os.Stdout, tui.RenderSummary(rows))

	outPath := flagOutputDir
	if abs, err := filepath.Abs(flagOutputDir); err == nil {
		outPath = abs
	}
	fmt.Fprintf(os.Stdout, "Outputs written to: %s\n", outPath)

	if summary.Failed > 0 {
		fmt.Fprintln(os.Stderr, "Failures:")
		for i, f := range summary.Failures {
			if i == maxReportedFailures {
				fmt.Fprintf(os.Stderr, "... and %d more\n", len(summary.Failures)-maxReportedFailures)
				break
			}
			fmt.Fprintf(os.Stderr, "- %s: %s\n", filepath.Base(f.Path), f.Reason)
		}
		return fmt.Errorf("%d of %d image(s) failed", summary.Failed, summary.Total)
	}

	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.Flags()
	f.Float64VarP(&flagPercent, "percent", "p", 0, "scale percent (e.g. 50 for half size)")
	f.StringVar(&flagInputDir, "input-dir", "images", "input images directory")
	f.StringVar(&flagOutputDir, "output-dir", "images-scaled", "output directory")
	f.IntVar(&flagQuality, "quality", 85, "quality for JPEG/WebP output (0-100)")
	f.BoolVar(&flagOptimize, "optimize", false, "enable lossless recompression where supported (PNG)")
	f.BoolVar(&flagStripMetadata, "strip-metadata", false, "strip metadata (EXIF/ICC) from outputs")
	f.BoolVar(&flagToWebP, "to-webp", false, "convert outputs to WebP")
	f.BoolVar(&flagWebPLossless, "webp-lossless", false, "save WebP losslessly (ignores --quality)")
	f.IntVar(&flagWorkers, "workers", runtime.NumCPU(), "number of parallel workers")
	f.BoolVar(&flagSkipExisting, "skip-existing", false, "skip images whose output already exists (default: overwrite)")
	f.BoolVar(&flagNoProgress, "no-progress", false, "disable the live progress display")

	_ = rootCmd.MarkFlagRequired("percent")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}
