// Command esign-render renders signed documents from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "esign-render"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPaths []string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var g globalFlags
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Inject signing fields into documents and render the signed PDF",
		Long: `esign-render stamps captured field values and signatures onto PDF and
DOCX documents, appends a signing certificate page per signer and writes the
finished PDF.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSliceVarP(&g.configPaths, "config", "c", nil, "Config file path (YAML); repeat to layer files, later ones win")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		renderCmd(&g),
		renderStoredCmd(&g),
		validateCmd(),
		mergeFieldsCmd(),
		configCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}
