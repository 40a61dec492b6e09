package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/pageshot/internal/browserpool"
	"github.com/tomasbasham/pageshot/internal/capture"
	"github.com/tomasbasham/pageshot/internal/model"
	"github.com/tomasbasham/pageshot/internal/storage"
)

// CaptureOptions holds the flags for the one-shot `capture` command, used to
// exercise the pipeline against a single URL without a database.
type CaptureOptions struct {
	URL            string
	ViewportWidth  int
	ScreenshotsDir string

	iooption.IOStreams
}

var (
	captureLong = templates.LongDesc(`Capture a single page once, outside of the scheduler, useful for
		trying out a page or an interaction script before adding it to the schedule.`)

	captureExample = templates.Examples(`
		# Capture the desktop viewport of a page to ./screenshots
		pageshot capture https://example.com

		# Capture a specific viewport width
		pageshot capture https://example.com --viewport 768`)
)

func NewCaptureOptions(streams iooption.IOStreams) *CaptureOptions {
	return &CaptureOptions{
		IOStreams: streams,
	}
}

func NewCaptureCommand(o *CaptureOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "capture [URL]",
		DisableFlagsInUseLine: true,
		Short:                 "Capture a single page once, outside of the scheduler",
		Long:                  captureLong,
		Example:               captureExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("URL is required")
			}
			o.URL = args[0]
			return o.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&o.ViewportWidth, "viewport", "w", 1920, "Viewport width in pixels")
	cmd.Flags().StringVarP(&o.ScreenshotsDir, "out", "o", "./screenshots", "Directory to write the screenshot and thumbnail to")

	return cmd
}

func (o *CaptureOptions) Run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	files, err := storage.NewDiskStore(o.ScreenshotsDir)
	if err != nil {
		return fmt.Errorf("open screenshot store: %w", err)
	}

	pool, err := browserpool.New(ctx, 1)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer pool.Close()

	browser, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire browser: %w", err)
	}
	defer pool.Release(browser)

	fmt.Fprintf(o.Out, "Capturing %s at %dpx...\n", o.URL, o.ViewportWidth)

	page := model.Page{ID: uuid.NewString(), URL: o.URL}
	out, err := capture.Run(ctx, browser, files, capture.Input{
		Page:               page,
		ViewportWidth:      o.ViewportWidth,
		ReportInstructions: true,
	})
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("capture failed: %s", out.ErrorMessage)
	}

	fmt.Fprintf(o.Out, "Captured %s viewport: %s (%s)\n", out.Tag, out.Screenshot.StoragePath, out.Screenshot.ThumbnailPath)
	for _, e := range out.ScreenshotErrors {
		fmt.Fprintf(o.ErrOut, "page error [%s]: %s\n", e.Kind, e.Message)
	}

	return nil
}
