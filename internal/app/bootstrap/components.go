package bootstrap

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"asnlookup/internal/cache"
	"asnlookup/internal/config"
	"asnlookup/internal/database"
	"asnlookup/internal/geolite"
	"asnlookup/internal/rangeindex"
	"asnlookup/internal/reload"
	"asnlookup/internal/source"
	"asnlookup/internal/support"
)

// NewFactory returns the index factory selected by cfg.
func NewFactory(cfg config.Config) (rangeindex.Factory, error) {
	kind, err := rangeindex.ParseKind(cfg.Index.Kind)
	if err != nil {
		return nil, err
	}
	return rangeindex.NewFactory(kind, cfg.Index.IndexBits)
}

// OpenSource opens the dataset selected by cfg. The returned func releases
// any connection the source holds.
func OpenSource(cfg config.Config) (source.Source, func(), error) {
	switch cfg.Dataset.Source {
	case config.DatasetSourceDatabase:
		db, err := database.SetupDB()
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: open dataset database: %w", err)
		}
		release := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return source.NewDatabaseSource(db, cfg.Dataset.BatchSize), release, nil
	default:
		return source.NewFileSource(cfg.Dataset.FilePath), func() {}, nil
	}
}

// NewController wires the configured source and index kind into a reload
// controller. Nothing is built until Init.
func NewController(cfg config.Config) (*reload.Controller, func(), error) {
	factory, err := NewFactory(cfg)
	if err != nil {
		return nil, nil, err
	}
	src, release, err := OpenSource(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Dataset source configured", "source", src, "kind", cfg.Index.Kind, "index_bits", cfg.Index.IndexBits)
	return reload.New(src, factory), release, nil
}

// NewResolver opens the GeoLite fallback when enabled. A missing database is
// not fatal: the resolver stays empty until the file appears.
func NewResolver(cfg config.Config) *geolite.Resolver {
	if !cfg.GeoLite.Enabled {
		return nil
	}
	resolver := geolite.NewResolver(cfg.GeoLite.ASNDatabasePath)
	if _, err := resolver.Refresh(); err != nil {
		log.Warn("GeoLite fallback unavailable", "path", resolver.Path(), "error", err)
	}
	return resolver
}

// NewCache returns the configured lookup cache, or nil when it is disabled
// or there is no GeoLite fallback for it to front. A redis backend that
// cannot be reached degrades to the memory backend.
func NewCache(cfg config.Config, ttl time.Duration) cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	if !cfg.GeoLite.Enabled {
		log.Debug("Lookup cache not started: GeoLite fallback disabled")
		return nil
	}
	if cfg.Cache.Backend == config.CacheBackendRedis {
		client, err := support.GetRedisClient()
		if err == nil {
			log.Info("Lookup cache backed by redis", "ttl", ttl)
			return cache.NewRedis(client, ttl)
		}
		log.Warn("Redis cache unavailable, using memory cache", "error", err)
	}
	log.Info("Lookup cache in memory", "ttl", ttl)
	return cache.NewMemory(ttl, 0)
}
