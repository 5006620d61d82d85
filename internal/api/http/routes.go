package httpapi

import (
	"context"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/weather-lights/internal/common"
	"github.com/i474232898/weather-lights/internal/store"
	"github.com/i474232898/weather-lights/internal/weather"
)

var validate = validator.New()

// MetarCache is the cache surface exposed over HTTP.
type MetarCache interface {
	Get(ctx context.Context, codes []string) (map[string]*weather.Metar, error)
	PrepopulateRegion(ctx context.Context, region string) error
	Entries() []store.EntryInfo
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, cache MetarCache) {
	v1 := app.Group("/api/v1")

	v1.Get("/metars", func(c *fiber.Ctx) error {
		results, err := lookup(c, cache)
		if err != nil {
			return err
		}
		return c.JSON(results)
	})

	v1.Get("/summary", func(c *fiber.Ctx) error {
		results, err := lookup(c, cache)
		if err != nil {
			return err
		}
		return c.JSON(weather.Summarize(results))
	})

	v1.Get("/cache", func(c *fiber.Ctx) error {
		return c.JSON(cache.Entries())
	})

	v1.Post("/prepopulate", func(c *fiber.Ctx) error {
		q := regionQuery{Region: utils.CopyString(c.Query("region"))}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := cache.PrepopulateRegion(c.UserContext(), q.Region); err != nil {
			log.Printf("ERROR: prepopulate %s failed: %v", q.Region, err)
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch region weather data")
		}

		return c.JSON(fiber.Map{
			"status":  "ok",
			"region":  q.Region,
			"entries": len(cache.Entries()),
		})
	})
}

// stationsQuery holds the station list shared by the lookup endpoints.
type stationsQuery struct {
	Stations []string `validate:"min=1,max=50,dive,alphanum,min=3,max=5"`
}

type regionQuery struct {
	Region string `validate:"required,alpha,min=2,max=4"`
}

// Query values alias fasthttp's request buffer, which is reused once the
// handler returns, so they are copied before reaching the cache.
func lookup(c *fiber.Ctx, cache MetarCache) (map[string]*weather.Metar, error) {
	q := stationsQuery{Stations: common.ParseStations(utils.CopyString(c.Query("stations")))}
	if err := validate.Struct(q); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	results, err := cache.Get(c.UserContext(), q.Stations)
	if err != nil {
		log.Printf("ERROR: lookup %v failed: %v", q.Stations, err)
		return nil, fiber.NewError(fiber.StatusBadGateway, "failed to fetch weather data")
	}
	return results, nil
}
