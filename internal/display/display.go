// Package display turns cache results into LED strip colours.
package display

import (
	"fmt"

	"github.com/i474232898/weather-lights/internal/weather"
)

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Blank is shown for stations with no usable flight category.
var Blank = Color{}

var palette = map[weather.Category]Color{
	weather.CategoryLIFR: {R: 191, G: 44, B: 214}, // purple
	weather.CategoryIFR:  {R: 226, G: 67, B: 27},  // red
	weather.CategoryMVFR: {R: 46, G: 56, B: 209},  // blue
	weather.CategoryVFR:  {R: 41, G: 178, B: 45},  // green
}

// ColorFor maps a record to its category colour. A nil record, an absent or
// errored category and an unrecognized category all render as Blank.
func ColorFor(m *weather.Metar) Color {
	cat, ok := m.Category()
	if !ok {
		return Blank
	}
	return palette[cat]
}

// Strip is an addressable row of RGB pixels.
type Strip interface {
	Len() int
	SetPixel(i int, c Color)
	Show() error
}

// Render sets one pixel per station, in order, and shows the strip. Stations
// beyond the strip length are ignored.
func Render(strip Strip, stations []string, results map[string]*weather.Metar) error {
	for i, code := range stations {
		if i >= strip.Len() {
			break
		}
		strip.SetPixel(i, ColorFor(results[code]))
	}
	return strip.Show()
}

func scale(v uint8, brightness uint8) uint8 {
	return uint8(uint16(v) * uint16(brightness) / 255)
}
