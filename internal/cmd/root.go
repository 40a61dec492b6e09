package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"
)

var (
	rootLong = templates.LongDesc(`pageshot schedules and captures screenshots of monitored pages
		across configured viewports, runs interaction scripts and assertions
		against them, and applies a retention policy to what it keeps.`)

	rootExamples = templates.Examples(``)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// PageshotOptions defines the options for the `pageshot` command.
type PageshotOptions struct {
	iooption.IOStreams
}

// NewPageshotOptions provides an initialised PageshotOptions instance.
func NewPageshotOptions(streams iooption.IOStreams) *PageshotOptions {
	return &PageshotOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `pageshot` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewPageshotOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `pageshot` command and its nested
// children.
func NewRootCommandWithArgs(o *PageshotOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "pageshot [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Scheduled screenshot capture and visual regression worker",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	cmd.AddCommand(NewServeCommand(NewServeOptions()))
	cmd.AddCommand(NewCaptureCommand(NewCaptureOptions(o.IOStreams)))
	cmd.AddCommand(NewMigrateCommand(NewMigrateOptions()))

	// The global normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary.
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
