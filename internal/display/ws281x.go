package display

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// WS281xStrip drives a WS2811/WS2812 strip over SPI.
type WS281xStrip struct {
	port       spi.PortCloser
	dev        *nrzled.Dev
	buf        []byte
	brightness uint8
}

// OpenWS281x initializes the host drivers and opens an n pixel strip on the
// named SPI port. An empty port name selects the first available port.
func OpenWS281x(portName string, n int, brightness uint8) (*WS281xStrip, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", portName, err)
	}

	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: n,
		Channels:  3,
		Freq:      2500 * physic.KiloHertz,
	})
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("open ws281x strip: %w", err)
	}

	return &WS281xStrip{
		port:       port,
		dev:        dev,
		buf:        make([]byte, 3*n),
		brightness: brightness,
	}, nil
}

func (s *WS281xStrip) Len() int {
	return len(s.buf) / 3
}

func (s *WS281xStrip) SetPixel(i int, c Color) {
	if i < 0 || i >= s.Len() {
		return
	}
	s.buf[3*i] = scale(c.R, s.brightness)
	s.buf[3*i+1] = scale(c.G, s.brightness)
	s.buf[3*i+2] = scale(c.B, s.brightness)
}

func (s *WS281xStrip) Show() error {
	if _, err := s.dev.Write(s.buf); err != nil {
		return fmt.Errorf("write pixels: %w", err)
	}
	return nil
}

// Close blanks the strip and releases the SPI port.
func (s *WS281xStrip) Close() error {
	if err := s.dev.Halt(); err != nil {
		s.port.Close()
		return err
	}
	return s.port.Close()
}
