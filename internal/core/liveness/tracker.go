// Package liveness maintains the in-memory online/offline state of every
// terminal and reconciles it with the device table. The cache is the source
// of truth at any instant; persistence lags behind and is caught up by the
// debounced heartbeat writes and the periodic sweep.
package liveness

import (
	"context"
	"sync"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/repository"
	"github.com/rs/zerolog/log"
)

// entry is the cached state for one serial number. The mutex guards every
// read-modify-write so heartbeats and the sweep race benignly.
type entry struct {
	mu            sync.Mutex
	status        model.DeviceStatus
	lastSeen      time.Time
	lastHeartbeat time.Time
}

// Tracker owns the liveness cache. It is shared between the heartbeat
// handlers and the sweep goroutine; entries are locked individually since
// devices are independent.
type Tracker struct {
	repo repository.DeviceRepository

	mu      sync.RWMutex
	entries map[string]*entry

	offlineThreshold time.Duration
	sweepInterval    time.Duration
	debounceWindow   time.Duration

	// writes tracks in-flight fire-and-forget persistence goroutines so
	// shutdown can drain them best-effort.
	writes sync.WaitGroup
}

// NewTracker creates an empty tracker. Call Warm before starting the sweep so
// devices known from a previous run are not treated as freshly unknown.
func NewTracker(repo repository.DeviceRepository, offlineThreshold, sweepInterval, debounceWindow time.Duration) *Tracker {
	return &Tracker{
		repo:             repo,
		entries:          make(map[string]*entry),
		offlineThreshold: offlineThreshold,
		sweepInterval:    sweepInterval,
		debounceWindow:   debounceWindow,
	}
}

// Warm populates the cache from every persisted device record.
func (t *Tracker) Warm(ctx context.Context) error {
	records, err := t.repo.ListAll(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range records {
		t.entries[rec.SerialNumber] = &entry{
			status:        rec.Status,
			lastSeen:      rec.LastSeen,
			lastHeartbeat: rec.LastSeen,
		}
	}

	log.Info().Int("devices", len(records)).Msg("Liveness cache warmed from device store")
	return nil
}

// OnHeartbeat records a check-in from a terminal. It never fails from the
// device's perspective: every internal error is logged and swallowed, which
// is why there is no error return.
func (t *Tracker) OnHeartbeat(ctx context.Context, serial string, now time.Time) {
	now = now.UTC()

	t.mu.Lock()
	e, known := t.entries[serial]
	if !known {
		e = &entry{}
		t.entries[serial] = e
	}
	t.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !known {
		t.registerDevice(ctx, serial, now)
		e.status = model.DeviceOnline
		e.lastSeen = now
		e.lastHeartbeat = now
		return
	}

	e.lastHeartbeat = now

	if e.status == model.DeviceOffline {
		e.status = model.DeviceOnline
		t.asyncWrite(serial, "promote", func(ctx context.Context) error {
			return t.repo.UpdateStatusAndLastSeen(ctx, serial, model.DeviceOnline, now)
		})
	}

	if e.lastSeen.IsZero() || now.Sub(e.lastSeen) > t.debounceWindow {
		e.lastSeen = now
		t.asyncWrite(serial, "last_seen", func(ctx context.Context) error {
			return t.repo.UpdateLastSeen(ctx, serial, now)
		})
	}
}

// registerDevice brings a previously uncached serial number into the store.
// Synchronous, but failures are swallowed: the cache entry is created either
// way and the next debounced write retries persistence implicitly.
func (t *Tracker) registerDevice(ctx context.Context, serial string, now time.Time) {
	existing, err := t.repo.FindBySerial(ctx, serial)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("serial", serial).Msg("Device lookup failed on first heartbeat")
		return
	}

	if existing == nil {
		err = t.repo.Insert(ctx, model.DeviceRecord{
			SerialNumber: serial,
			Status:       model.DeviceOnline,
			LastSeen:     now,
		})
	} else {
		err = t.repo.UpdateStatusAndLastSeen(ctx, serial, model.DeviceOnline, now)
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("serial", serial).Msg("Device registration write failed")
	}
}

// SweepOnce demotes every cached device whose heartbeat went stale and
// persists each demotion independently. It never promotes and never removes
// entries; only heartbeats bring a device back online.
func (t *Tracker) SweepOnce(ctx context.Context, now time.Time) {
	now = now.UTC()

	type demotion struct {
		serial   string
		lastSeen time.Time
	}

	t.mu.RLock()
	serials := make([]string, 0, len(t.entries))
	for serial := range t.entries {
		serials = append(serials, serial)
	}
	t.mu.RUnlock()

	var demoted []demotion
	for _, serial := range serials {
		t.mu.RLock()
		e := t.entries[serial]
		t.mu.RUnlock()

		e.mu.Lock()
		if e.status == model.DeviceOnline && now.Sub(e.lastHeartbeat) > t.offlineThreshold {
			e.status = model.DeviceOffline
			demoted = append(demoted, demotion{serial: serial, lastSeen: e.lastSeen})
		}
		e.mu.Unlock()
	}

	for _, d := range demoted {
		err := t.repo.UpdateStatusAndLastSeen(ctx, d.serial, model.DeviceOffline, d.lastSeen)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("serial", d.serial).Msg("Failed to persist offline transition")
			continue
		}
		log.Ctx(ctx).Info().Str("serial", d.serial).Msg("Device marked offline")
	}
}

// Run drives the sweep on its fixed interval until the context is canceled,
// then drains any in-flight persistence writes best-effort.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", t.sweepInterval).Msg("Liveness sweep started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Liveness sweep stopping")
			t.writes.Wait()
			return
		case <-ticker.C:
			t.SweepOnce(ctx, time.Now().UTC())
		}
	}
}

// CachedDevice is one device's state as the cache currently sees it.
type CachedDevice struct {
	SerialNumber  string             `json:"serialNumber"`
	Status        model.DeviceStatus `json:"status"`
	LastSeen      time.Time          `json:"lastSeen"`
	LastHeartbeat time.Time          `json:"lastHeartbeat"`
}

// Snapshot returns the current cached state of every device.
func (t *Tracker) Snapshot() []CachedDevice {
	t.mu.RLock()
	defer t.mu.RUnlock()

	records := make([]CachedDevice, 0, len(t.entries))
	for serial, e := range t.entries {
		e.mu.Lock()
		records = append(records, CachedDevice{
			SerialNumber:  serial,
			Status:        e.status,
			LastSeen:      e.lastSeen,
			LastHeartbeat: e.lastHeartbeat,
		})
		e.mu.Unlock()
	}
	return records
}

// Flush blocks until all in-flight fire-and-forget writes finish. Used by
// shutdown and tests.
func (t *Tracker) Flush() {
	t.writes.Wait()
}

// asyncWrite runs one fire-and-forget persistence write. The write is
// detached from the request context so a finished heartbeat response cannot
// cancel it; failures are logged, never retried.
func (t *Tracker) asyncWrite(serial, kind string, fn func(context.Context) error) {
	t.writes.Add(1)
	go func() {
		defer t.writes.Done()
		if err := fn(context.Background()); err != nil {
			log.Error().Err(err).Str("serial", serial).Str("write", kind).Msg("Async device write failed")
		}
	}()
}
