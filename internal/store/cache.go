package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-lights/internal/weather"
)

var (
	// ErrNoIdentifier is returned when a record without a usable station
	// identifier is added to the cache.
	ErrNoIdentifier = errors.New("record has no valid identifier")
)

// Fetcher is the part of weather.Provider the cache depends on.
type Fetcher interface {
	FetchBatch(ctx context.Context, codes []string) ([]*weather.Metar, error)
	FetchRegion(ctx context.Context, region string) ([]*weather.Metar, error)
}

// Config holds the cache's expiry policy.
type Config struct {
	// MissingTimeout is how long a station that returned no report is
	// remembered before it is asked for again.
	MissingTimeout time.Duration
	// MinReplacement is how long after its report time a record is assumed
	// not to have been superseded.
	MinReplacement time.Duration
	// RefreshInterval is the minimum gap between checks of a record once
	// MinReplacement has passed.
	RefreshInterval time.Duration
}

// DefaultConfig returns the standard expiry policy.
func DefaultConfig() Config {
	return Config{
		MissingTimeout:  5 * time.Minute,
		MinReplacement:  30 * time.Minute,
		RefreshInterval: 2 * time.Minute,
	}
}

type entryKind uint8

const (
	entryMissing entryKind = iota
	entryPresent
)

func (k entryKind) String() string {
	if k == entryPresent {
		return "present"
	}
	return "missing"
}

// entry is either a missing station (metar is nil) or a present one.
type entry struct {
	kind      entryKind
	checkedAt time.Time
	metar     *weather.Metar
}

// Cache is a METAR lookup cache keyed by station code. It remembers both
// stations that returned a record and stations that returned nothing, and
// expires each kind on its own schedule.
//
// Every public method holds the cache lock for its whole duration, including
// the remote fetch, so at most one fetch is in flight at a time.
type Cache struct {
	mu sync.Mutex

	fetcher Fetcher
	cfg     Config
	now     func() time.Time

	entries map[string]entry
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache backed by fetcher.
func New(fetcher Fetcher, cfg Config, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a record or nil for every code in codes. Codes that are neither
// cached nor remembered as missing, or whose entry has expired, are fetched
// together in one batch.
//
// A fetch error is returned as is and the cache is left exactly as it was:
// expired entries are only evicted once the fetch has succeeded.
func (c *Cache) Get(ctx context.Context, codes []string) (map[string]*weather.Metar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	var pending []string
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if e, ok := c.entries[code]; !ok || c.expired(e, now) {
			pending = append(pending, code)
		}
	}

	var fetched []*weather.Metar
	if len(pending) > 0 {
		var err error
		fetched, err = c.fetcher.FetchBatch(ctx, pending)
		if err != nil {
			return nil, fmt.Errorf("fetch %d stations: %w", len(pending), err)
		}
	}

	c.evict(now)
	if len(pending) > 0 {
		c.merge(pending, fetched)
	}

	result := make(map[string]*weather.Metar, len(seen))
	for code := range seen {
		if e, ok := c.entries[code]; ok && e.kind == entryPresent {
			result[code] = e.metar
		} else {
			result[code] = nil
		}
	}
	return result, nil
}

// merge stores the records of a successful batch and remembers every pending
// code left without one as missing.
func (c *Cache) merge(pending []string, metars []*weather.Metar) {
	now := c.now()
	unresolved := make(map[string]struct{}, len(pending))
	for _, code := range pending {
		unresolved[code] = struct{}{}
	}

	for _, m := range metars {
		id, err := c.put(m, now)
		if err != nil {
			log.Printf("cache: dropping record: %v", err)
			continue
		}
		delete(unresolved, id)
	}

	// Callers may pass codes that alias a reused buffer; keys are cloned so
	// the map owns them.
	for code := range unresolved {
		c.entries[strings.Clone(code)] = entry{kind: entryMissing, checkedAt: now}
	}

	log.Printf("DEBUG: cache: fetched %d stations, %d records, %d missing",
		len(pending), len(metars), len(unresolved))
}

// Add stores m as a present entry under its own identifier, replacing any
// existing entry for that station.
func (c *Cache) Add(m *weather.Metar) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.put(m, c.now())
	return err
}

func (c *Cache) put(m *weather.Metar, now time.Time) (string, error) {
	if m == nil {
		return "", ErrNoIdentifier
	}
	id, ok := m.Identifier.Value()
	if !ok {
		return "", ErrNoIdentifier
	}
	c.entries[strings.Clone(id)] = entry{kind: entryPresent, checkedAt: now, metar: m}
	return id, nil
}

// PrepopulateRegion fetches every current record for region and stores each
// one as a present entry.
func (c *Cache) PrepopulateRegion(ctx context.Context, region string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	metars, err := c.fetcher.FetchRegion(ctx, region)
	if err != nil {
		return fmt.Errorf("prepopulate region %s: %w", region, err)
	}

	now := c.now()
	added := 0
	for _, m := range metars {
		if _, err := c.put(m, now); err != nil {
			log.Printf("cache: dropping record from region %s: %v", region, err)
			continue
		}
		added++
	}

	log.Printf("INFO: cache: prepopulated %d stations from region %s", added, region)
	return nil
}

// evict drops entries expired at now. Must be called with c.mu held.
func (c *Cache) evict(now time.Time) {
	for code, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, code)
		}
	}
}

func (c *Cache) expired(e entry, now time.Time) bool {
	sinceCheck := now.Sub(e.checkedAt)
	if e.kind == entryMissing {
		return sinceCheck > c.cfg.MissingTimeout
	}

	// A present record is kept until it is old enough to have been replaced
	// upstream and it has not been checked for RefreshInterval.
	if rt, ok := e.metar.ReportTime.Value(); ok && now.Sub(rt) <= c.cfg.MinReplacement {
		return false
	}
	return sinceCheck > c.cfg.RefreshInterval
}

// EntryInfo describes one cache entry.
type EntryInfo struct {
	Code      string    `json:"code"`
	Kind      string    `json:"kind"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Entries lists the current entries ordered by station code. Expired entries
// that have not been evicted yet are included.
func (c *Cache) Entries() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]EntryInfo, 0, len(c.entries))
	for code, e := range c.entries {
		out = append(out, EntryInfo{
			Code:      code,
			Kind:      e.kind.String(),
			CheckedAt: e.checkedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
