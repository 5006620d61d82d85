package display

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// SimStrip stands in for LED hardware. Show logs the current pixel colours.
type SimStrip struct {
	mu         sync.Mutex
	pixels     []Color
	brightness uint8
	logger     *log.Logger
}

// NewSimStrip creates a simulated strip of n pixels. A nil logger uses the
// standard logger.
func NewSimStrip(n int, brightness uint8, logger *log.Logger) *SimStrip {
	if logger == nil {
		logger = log.Default()
	}
	return &SimStrip{
		pixels:     make([]Color, n),
		brightness: brightness,
		logger:     logger,
	}
}

func (s *SimStrip) Len() int {
	return len(s.pixels)
}

func (s *SimStrip) SetPixel(i int, c Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pixels) {
		return
	}
	s.pixels[i] = Color{
		R: scale(c.R, s.brightness),
		G: scale(c.G, s.brightness),
		B: scale(c.B, s.brightness),
	}
}

func (s *SimStrip) Show() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := make([]string, len(s.pixels))
	for i, c := range s.pixels {
		parts[i] = fmt.Sprintf("%d:%s", i, c)
	}
	s.logger.Printf("display: %s", strings.Join(parts, " "))
	return nil
}

// Pixels returns a copy of the current pixel colours.
func (s *SimStrip) Pixels() []Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Color(nil), s.pixels...)
}
