package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-lights/internal/api/http"
	"github.com/i474232898/weather-lights/internal/config"
	"github.com/i474232898/weather-lights/internal/display"
	"github.com/i474232898/weather-lights/internal/scheduler"
	"github.com/i474232898/weather-lights/internal/store"
	"github.com/i474232898/weather-lights/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound ADDS calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	adds := providers.NewADDSProvider(httpClient, cfg.ADDSBaseURL, cfg.ADDSMaxRetries)

	cache := store.New(adds, cfg.CacheConfig())

	if cfg.PrepopulateRegion != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout)
		if err := cache.PrepopulateRegion(ctx, cfg.PrepopulateRegion); err != nil {
			log.Printf("ERROR: prepopulate failed, continuing with a cold cache: %v", err)
		}
		cancel()
	}

	strip, closeStrip := openStrip(cfg)
	defer closeStrip()

	sched := scheduler.New(cfg.Stations, cfg.PollInterval, cache, strip)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-lights",
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * cfg.HTTPTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-lights",
		})
	})

	httpapi.RegisterRoutes(app, cache)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// openStrip returns the configured LED strip. Without usable hardware it falls
// back to the simulated strip.
func openStrip(cfg *config.AppConfig) (display.Strip, func()) {
	n := len(cfg.Stations)
	brightness := uint8(cfg.LEDBrightness)

	if cfg.LEDDriver == "ws281x" {
		strip, err := display.OpenWS281x(cfg.LEDSPIPort, n, brightness)
		if err == nil {
			return strip, func() {
				if err := strip.Close(); err != nil {
					log.Printf("error closing strip: %v", err)
				}
			}
		}
		log.Printf("ERROR: ws281x strip unavailable, using simulation: %v", err)
	}

	return display.NewSimStrip(n, brightness, nil), func() {}
}
