package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/i474232898/weather-lights/internal/display"
	"github.com/i474232898/weather-lights/internal/weather"
)

// Lookup is the cache operation the poll loop depends on.
type Lookup interface {
	Get(ctx context.Context, codes []string) (map[string]*weather.Metar, error)
}

// Scheduler periodically looks up the configured stations and renders them
// on the strip.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cache     Lookup
	strip     display.Strip
	stations  []string
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(stations []string, interval time.Duration, cache Lookup, strip display.Strip) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	// A slow fetch must not overlap the next tick.
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		cache:     cache,
		strip:     strip,
		stations:  stations,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the poll job and starts the underlying scheduler. The
// first poll runs immediately.
func (s *Scheduler) Start() error {
	if len(s.stations) == 0 {
		log.Println("scheduler: no stations configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.Poll(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Poll runs one lookup and render cycle. A failed lookup leaves the strip as
// it was; the next tick tries again.
func (s *Scheduler) Poll(ctx context.Context) bool {
	runID := uuid.NewString()
	log.Printf("scheduler: [%s] polling %d stations", runID, len(s.stations))

	results, err := s.cache.Get(ctx, s.stations)
	if err != nil {
		log.Printf("ERROR: scheduler: [%s] lookup failed: %v", runID, err)
		return false
	}

	if err := display.Render(s.strip, s.stations, results); err != nil {
		log.Printf("ERROR: scheduler: [%s] render failed: %v", runID, err)
		return false
	}

	counts := weather.Summarize(results)
	log.Printf("scheduler: [%s] done VFR=%d MVFR=%d IFR=%d LIFR=%d unknown=%d", runID,
		counts[weather.CategoryVFR], counts[weather.CategoryMVFR], counts[weather.CategoryIFR],
		counts[weather.CategoryLIFR], counts[weather.CategoryUnknown])
	return true
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
