package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"asnlookup/internal/api/dto"
	"asnlookup/internal/app/bootstrap"
	"asnlookup/internal/config"
	"asnlookup/internal/lookup"
)

func newLookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <ip>...",
		Short: "Build the index once and resolve the given addresses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cfg := config.GetConfig()

			ctrl, release, err := bootstrap.NewController(cfg)
			if err != nil {
				return err
			}
			defer release()
			if _, err := ctrl.Init(ctx); err != nil {
				return err
			}

			var opts []lookup.Option
			if resolver := bootstrap.NewResolver(cfg); resolver != nil {
				opts = append(opts, lookup.WithFallback(resolver))
			}
			svc := lookup.NewService(ctrl, opts...)

			results := make([]dto.IPInfo, 0, len(args))
			for _, ip := range args {
				res, err := svc.Lookup(ctx, ip)
				results = append(results, lookup.Info(res, err))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
}
