package main

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"asnlookup/internal/app/bootstrap"
	"asnlookup/internal/config"
	"asnlookup/internal/rangeindex"
)

func newBenchCommand() *cobra.Command {
	var (
		count int
		seed  uint64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Build the configured index and time random lookups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, release, err := bootstrap.NewController(config.GetConfig())
			if err != nil {
				return err
			}
			defer release()

			gen, err := ctrl.Init(commandContext(cmd))
			if err != nil {
				return err
			}

			addrs := randomAddrs(count, seed)
			hits := 0
			start := time.Now()
			for _, addr := range addrs {
				if _, _, ok := ctrl.Search(addr); ok {
					hits++
				}
			}
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "index: %s, %d ranges, built in %s\n", gen.Index.Kind(), gen.Index.Len(), gen.BuildDuration)
			fmt.Fprintf(out, "lookups: %d, hits: %d, total: %s", len(addrs), hits, elapsed)
			if len(addrs) > 0 {
				fmt.Fprintf(out, ", %s/op", elapsed/time.Duration(len(addrs)))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1_000_000, "number of random lookups")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}

func randomAddrs(count int, seed uint64) []uint32 {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	faker := gofakeit.New(seed)

	addrs := make([]uint32, 0, count)
	for len(addrs) < count {
		addr, err := rangeindex.ParseAddr(faker.IPv4Address())
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}
