package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"asnlookup/internal/app"
	"asnlookup/internal/app/bootstrap"
	"asnlookup/internal/app/version"
)

func newRootCommand() *cobra.Command {
	var logCloser io.Closer

	root := &cobra.Command{
		Use:           "asnlookup",
		Short:         "IPv4 to ISP/ASN lookup service",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			closer, err := bootstrap.Setup()
			if err != nil {
				return err
			}
			logCloser = closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		RunE: runServe,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve lookups over HTTP (and DNS when enabled)",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		newLookupCommand(),
		newValidateCommand(),
		newTokenCommand(),
		newBenchCommand(),
		newImportCommand(),
	)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
