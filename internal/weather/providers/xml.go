package providers

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-lights/internal/weather"
)

// addsResponse mirrors the ADDS dataserver XML envelope. Elements are held as
// *string so a missing element (nil) can be told apart from an empty one.
type addsResponse struct {
	XMLName xml.Name `xml:"response"`
	Errors  []string `xml:"errors>error"`
	Data    struct {
		Metars []addsMetar `xml:"METAR"`
	} `xml:"data"`
}

type addsMetar struct {
	RawText             *string   `xml:"raw_text"`
	StationID           *string   `xml:"station_id"`
	ObservationTime     *string   `xml:"observation_time"`
	TempC               *string   `xml:"temp_c"`
	DewpointC           *string   `xml:"dewpoint_c"`
	WindDirDegrees      *string   `xml:"wind_dir_degrees"`
	WindSpeedKt         *string   `xml:"wind_speed_kt"`
	WindGustKt          *string   `xml:"wind_gust_kt"`
	VisibilityStatuteMi *string   `xml:"visibility_statute_mi"`
	AltimInHg           *string   `xml:"altim_in_hg"`
	FlightCategory      *string   `xml:"flight_category"`
	SnowIn              *string   `xml:"snow_in"`
	VertVisFt           *string   `xml:"vert_vis_ft"`
	SkyConditions       []addsSky `xml:"sky_condition"`
}

type addsSky struct {
	Cover   string  `xml:"sky_cover,attr"`
	BaseAGL *string `xml:"cloud_base_ft_agl,attr"`
}

// fieldSetter is satisfied by both weather.Field and weather.Derived.
type fieldSetter[T any] interface {
	Set(T)
	SetErrored(bool)
	SetValid(bool) error
}

func parseResponse(body []byte) ([]*weather.Metar, error) {
	var resp addsResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("server reported: %s", strings.Join(resp.Errors, "; "))
	}

	metars := make([]*weather.Metar, 0, len(resp.Data.Metars))
	for _, raw := range resp.Data.Metars {
		metars = append(metars, parseMetar(raw))
	}
	return metars, nil
}

func parseMetar(x addsMetar) *weather.Metar {
	m := weather.NewMetar()

	setString(&m.Identifier, x.StationID)
	setTime(&m.ReportTime, x.ObservationTime)
	setFloat(&m.Temperature, x.TempC)
	setFloat(&m.Dewpoint, x.DewpointC)
	setString(&m.WindDirection, x.WindDirDegrees)
	setFloat(&m.WindSpeed, x.WindSpeedKt)
	setFloat(&m.GustSpeed, x.WindGustKt)
	setVisibility(m.VisibilitySM, x.VisibilityStatuteMi)
	setFloat(m.PressureInHg, x.AltimInHg)
	setString(&m.FlightCategory, x.FlightCategory)
	setString(&m.Raw, x.RawText)
	setFloat(&m.SnowDepth, x.SnowIn)
	setCeiling(&m.Ceiling, x.SkyConditions, x.VertVisFt)

	return m
}

func setString(f fieldSetter[string], text *string) {
	if text == nil {
		_ = f.SetValid(false)
		return
	}
	s := strings.TrimSpace(*text)
	if s == "" {
		f.SetErrored(true)
		return
	}
	f.Set(s)
}

func setFloat(f fieldSetter[float64], text *string) {
	setNumber(f, text, parseNumber)
}

func setVisibility(f fieldSetter[float64], text *string) {
	setNumber(f, text, parseVisibility)
}

func setNumber(f fieldSetter[float64], text *string, parse func(string) (float64, error)) {
	if text == nil {
		_ = f.SetValid(false)
		return
	}
	v, err := parse(*text)
	if err != nil {
		f.SetErrored(true)
		return
	}
	f.Set(v)
}

func setTime(f fieldSetter[time.Time], text *string) {
	if text == nil {
		_ = f.SetValid(false)
		return
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*text))
	if err != nil {
		f.SetErrored(true)
		return
	}
	f.Set(ts.UTC())
}

// parseNumber accepts finite plain decimals only.
func parseNumber(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// parseVisibility also accepts the "10+" form used for unrestricted
// visibility.
func parseVisibility(text string) (float64, error) {
	return parseNumber(strings.TrimSuffix(strings.TrimSpace(text), "+"))
}

// setCeiling takes the lowest broken, overcast or obscured layer. With no
// such layer the ceiling is absent.
func setCeiling(f *weather.Field[float64], layers []addsSky, vertVis *string) {
	found := false
	var lowest float64
	for _, l := range layers {
		switch l.Cover {
		case "BKN", "OVC", "OVX":
		default:
			continue
		}

		base := l.BaseAGL
		if base == nil && l.Cover == "OVX" {
			base = vertVis
		}
		if base == nil {
			f.SetErrored(true)
			return
		}
		v, err := parseNumber(*base)
		if err != nil {
			f.SetErrored(true)
			return
		}
		if !found || v < lowest {
			lowest = v
			found = true
		}
	}

	if !found {
		f.Clear()
		return
	}
	f.Set(lowest)
}
