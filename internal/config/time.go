package config

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultReloadInterval = 10 * time.Second
	defaultCacheTTL       = 20 * time.Second
	defaultGeoLiteUpdate  = 24 * time.Hour
)

var (
	reloadInterval          atomic.Value
	reloadIntervalListeners []chan time.Duration
	cacheTTL                atomic.Value
	geoLiteUpdateInterval   atomic.Value
	listenersMu             sync.Mutex
)

func init() {
	reloadInterval.Store(defaultReloadInterval)
	cacheTTL.Store(defaultCacheTTL)
	geoLiteUpdateInterval.Store(defaultGeoLiteUpdate)
	SetBetweenTime()
}

// SetBetweenTime recomputes the derived intervals from the current config.
func SetBetweenTime() {
	cfg := GetConfig()
	setReloadInterval(CalculateBetweenTime(cfg.Reload.Timer))

	ttl := CalculateBetweenTime(cfg.Cache.TTLTimer)
	if CalculateMillisecondsOfCheckingPeriod(cfg.Cache.TTLTimer) == 0 {
		ttl = defaultCacheTTL
	}
	cacheTTL.Store(ttl)

	geoLiteUpdate := defaultGeoLiteUpdate
	if CalculateMillisecondsOfCheckingPeriod(cfg.GeoLite.UpdateTimer) > 0 {
		geoLiteUpdate = CalculateBetweenTime(cfg.GeoLite.UpdateTimer)
	}
	geoLiteUpdateInterval.Store(geoLiteUpdate)
}

// CalculateBetweenTime converts a timer to a duration of at least one second.
func CalculateBetweenTime(timer Timer) time.Duration {
	intervalMs := CalculateMillisecondsOfCheckingPeriod(timer)

	minInterval := uint64(1000)
	if intervalMs < minInterval {
		intervalMs = minInterval
	}

	return time.Duration(intervalMs) * time.Millisecond
}

func CalculateMillisecondsOfCheckingPeriod(timer Timer) uint64 {
	return uint64(timer.Days)*24*60*60*1000 +
		uint64(timer.Hours)*60*60*1000 +
		uint64(timer.Minutes)*60*1000 +
		uint64(timer.Seconds)*1000
}

// TimerFromDuration is the inverse of CalculateBetweenTime, rounded down to
// whole seconds.
func TimerFromDuration(d time.Duration) Timer {
	total := uint64(d / time.Second)
	return Timer{
		Days:    uint32(total / 86400),
		Hours:   uint32(total % 86400 / 3600),
		Minutes: uint32(total % 3600 / 60),
		Seconds: uint32(total % 60),
	}
}

func GetReloadInterval() time.Duration {
	return reloadInterval.Load().(time.Duration)
}

func GetCacheTTL() time.Duration {
	return cacheTTL.Load().(time.Duration)
}

func GetGeoLiteUpdateInterval() time.Duration {
	return geoLiteUpdateInterval.Load().(time.Duration)
}

// ReloadIntervalUpdates returns a channel receiving the current interval
// immediately and every later change. A receiver that falls behind only
// sees the most recent value.
func ReloadIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	reloadIntervalListeners = append(reloadIntervalListeners, ch)
	listenersMu.Unlock()

	ch <- GetReloadInterval()
	return ch
}

func setReloadInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultReloadInterval
	}

	if GetReloadInterval() == interval {
		return
	}

	reloadInterval.Store(interval)

	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, ch := range reloadIntervalListeners {
		select {
		case ch <- interval:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- interval:
			default:
			}
		}
	}
}
