package weather

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Unit conversion factors applied by the derived views on a record.
const (
	MetresToStatuteMiles = 0.000621371
	HectopascalsToInHg   = 0.02953
)

// Category is a NOAA flight category.
type Category string

const (
	CategoryUnknown Category = "unknown"
	CategoryVFR     Category = "VFR"
	CategoryMVFR    Category = "MVFR"
	CategoryIFR     Category = "IFR"
	CategoryLIFR    Category = "LIFR"
)

// ParseCategory maps a flight_category string onto a known Category.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case CategoryVFR, CategoryMVFR, CategoryIFR, CategoryLIFR:
		return c, true
	default:
		return CategoryUnknown, false
	}
}

// Conditions is a snapshot of observed weather. Every quantity is a Field
// and starts absent.
//
// Conditions holds derived views that point back into itself, so it must be
// built with initConditions and never copied by value afterwards.
type Conditions struct {
	Ceiling       Field[float64] // feet above ground level
	Visibility    Field[float64] // metres
	VisibilitySM  *Derived[float64]
	Pressure      Field[float64] // hPa
	PressureInHg  *Derived[float64]
	WindSpeed     Field[float64] // knots
	WindDirection Field[string]  // degrees, or VRB
	GustSpeed     Field[float64] // knots
	GustDirection Field[string]
	Temperature   Field[float64] // celsius
	Dewpoint      Field[float64] // celsius
	SnowDepth     Field[float64] // inches
}

func (c *Conditions) initConditions() {
	c.VisibilitySM = NewConversion(&c.Visibility, MetresToStatuteMiles)
	c.PressureInHg = NewConversion(&c.Pressure, HectopascalsToInHg)
}

// Metar is one station's observation. Identifier, ReportTime and Raw are
// errored until the parser sets them.
type Metar struct {
	Conditions

	Identifier     Field[string]
	ReportTime     Field[time.Time]
	FlightCategory Field[string]
	Raw            Field[string]
}

// NewMetar returns an empty record ready to be populated by a parser.
func NewMetar() *Metar {
	m := &Metar{
		Identifier: NewErroredField[string](),
		ReportTime: NewErroredField[time.Time](),
		Raw:        NewErroredField[string](),
	}
	m.initConditions()
	return m
}

// Category returns the record's flight category when it is valid and known.
func (m *Metar) Category() (Category, bool) {
	if m == nil {
		return CategoryUnknown, false
	}
	s, ok := m.FlightCategory.Value()
	if !ok {
		return CategoryUnknown, false
	}
	return ParseCategory(s)
}

// Taf is a placeholder for terminal aerodrome forecasts, which are not
// fetched yet.
type Taf struct{}

type fieldView interface {
	State() FieldState
	anyValue() (any, bool)
}

func (f *Field[T]) anyValue() (any, bool) { return f.Value() }
func (d *Derived[T]) anyValue() (any, bool) { return d.Value() }

type namedField struct {
	name    string
	field   fieldView
	derived bool
}

func (m *Metar) fields() []namedField {
	fields := []namedField{
		{name: "identifier", field: &m.Identifier},
		{name: "reportTime", field: &m.ReportTime},
		{name: "temperatureC", field: &m.Temperature},
		{name: "dewpointC", field: &m.Dewpoint},
		{name: "windDirection", field: &m.WindDirection},
		{name: "windSpeedKt", field: &m.WindSpeed},
		{name: "gustDirection", field: &m.GustDirection},
		{name: "gustSpeedKt", field: &m.GustSpeed},
		{name: "visibilityM", field: &m.Visibility},
	}
	// A Metar not built by NewMetar has no derived views.
	if m.VisibilitySM != nil {
		fields = append(fields, namedField{name: "visibilitySM", field: m.VisibilitySM, derived: true})
	}
	fields = append(fields, namedField{name: "pressureHpa", field: &m.Pressure})
	if m.PressureInHg != nil {
		fields = append(fields, namedField{name: "pressureInHg", field: m.PressureInHg, derived: true})
	}
	return append(fields,
		namedField{name: "ceilingFtAgl", field: &m.Ceiling},
		namedField{name: "snowDepthIn", field: &m.SnowDepth},
		namedField{name: "flightCategory", field: &m.FlightCategory},
		namedField{name: "raw", field: &m.Raw},
	)
}

// String lists valid fields as name:value and errored fields as name:ERR.
// Absent fields are skipped.
func (m *Metar) String() string {
	var b strings.Builder
	for _, nf := range m.fields() {
		if nf.derived {
			continue
		}
		switch nf.field.State() {
		case FieldErrored:
			fmt.Fprintf(&b, "%s:ERR ", nf.name)
		case FieldValid:
			v, _ := nf.field.anyValue()
			fmt.Fprintf(&b, "%s:%v ", nf.name, v)
		}
	}
	return strings.TrimSpace(b.String())
}

// MarshalJSON renders valid fields by name and lists errored field names
// under "errors".
func (m *Metar) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	var errored []string
	for _, nf := range m.fields() {
		switch nf.field.State() {
		case FieldValid:
			out[nf.name], _ = nf.field.anyValue()
		case FieldErrored:
			if !nf.derived {
				errored = append(errored, nf.name)
			}
		}
	}
	if len(errored) > 0 {
		out["errors"] = errored
	}
	return json.Marshal(out)
}
