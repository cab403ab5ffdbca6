package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"asnlookup/internal/app/bootstrap"
	"asnlookup/internal/app/server"
	"asnlookup/internal/config"
	"asnlookup/internal/dnsserver"
	"asnlookup/internal/geolite"
	"asnlookup/internal/lookup"
	"asnlookup/internal/support"
)

const geoLiteRefreshFallback = time.Minute

// Run serves lookups until ctx is done. It fails only when the first
// generation cannot be built or a listener cannot start.
func Run(ctx context.Context) error {
	cfg := config.GetConfig()

	ctrl, release, err := bootstrap.NewController(cfg)
	if err != nil {
		return err
	}
	defer release()

	if _, err := ctrl.Init(ctx); err != nil {
		return fmt.Errorf("app: build initial index: %w", err)
	}

	var opts []lookup.Option
	resolver := bootstrap.NewResolver(cfg)
	if resolver != nil {
		opts = append(opts, lookup.WithFallback(resolver))
	}
	if c := bootstrap.NewCache(cfg, config.GetCacheTTL()); c != nil {
		defer c.Close()
		opts = append(opts, lookup.WithCache(c))
	}
	svc := lookup.NewService(ctrl, opts...)

	srv, err := server.New(svc, ctrl, cfg.Bulk.Workers)
	if err != nil {
		return err
	}
	defer srv.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Server.BindingAddress)
	})

	g.Go(func() error {
		ctrl.Run(gctx, config.GetReloadInterval(), config.ReloadIntervalUpdates())
		return nil
	})

	if resolver != nil {
		g.Go(func() error {
			support.RunEvery(gctx, "geolite refresh", config.GetReloadInterval(), geoLiteRefreshFallback, config.ReloadIntervalUpdates(), func(context.Context) {
				if _, err := resolver.Refresh(); err != nil {
					log.Debug("GeoLite refresh skipped", "error", err)
				}
			})
			return nil
		})

		if cfg.GeoLite.AutoUpdate {
			g.Go(func() error {
				runGeoLiteUpdates(gctx, geolite.NewUpdater(cfg.GeoLite.LicenseKey), resolver)
				return nil
			})
		}
	}

	if cfg.DNS.Enabled {
		g.Go(func() error {
			return dnsserver.New(svc, cfg.DNS.Zone).ListenAndServe(gctx, cfg.DNS.Address)
		})
	}

	log.Info("asnlookup started", "address", cfg.Server.BindingAddress, "generation", ctrl.Current().ID)
	return g.Wait()
}

func runGeoLiteUpdates(ctx context.Context, updater *geolite.Updater, resolver *geolite.Resolver) {
	update := func(ctx context.Context) {
		err := updater.Update(ctx, resolver.Path())
		switch {
		case errors.Is(err, geolite.ErrNoLicenseKey):
			log.Debug("GeoLite update skipped: license key missing")
			return
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			log.Error("GeoLite update failed", "error", err)
			return
		}
		if _, err := resolver.Refresh(); err != nil {
			log.Error("GeoLite reload after update failed", "error", err)
			return
		}
		log.Info("GeoLite database updated", "path", resolver.Path())
	}

	update(ctx)
	support.RunEvery(ctx, "geolite update", config.GetGeoLiteUpdateInterval(), 24*time.Hour, nil, update)
}
