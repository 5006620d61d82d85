package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lights/internal/weather"
)

const twoMetars = `<?xml version="1.0" encoding="UTF-8"?>
<response version="1.2">
  <request_index>1</request_index>
  <errors />
  <warnings />
  <data num_results="2">
    <METAR>
      <raw_text>EGKB 170950Z 24008KT 9999 BKN012 OVC030 12/08 Q1021</raw_text>
      <station_id>EGKB</station_id>
      <observation_time>2026-10-17T09:50:00Z</observation_time>
      <temp_c>12.0</temp_c>
      <dewpoint_c>8.0</dewpoint_c>
      <wind_dir_degrees>240</wind_dir_degrees>
      <wind_speed_kt>8</wind_speed_kt>
      <visibility_statute_mi>6.21</visibility_statute_mi>
      <altim_in_hg>30.150591</altim_in_hg>
      <sky_condition sky_cover="OVC" cloud_base_ft_agl="3000" />
      <sky_condition sky_cover="BKN" cloud_base_ft_agl="1200" />
      <flight_category>MVFR</flight_category>
    </METAR>
    <METAR>
      <raw_text>EGHI 170950Z VRB03KT CAVOK 14/09 Q1020</raw_text>
      <station_id>EGHI</station_id>
      <observation_time>not-a-time</observation_time>
      <temp_c></temp_c>
      <dewpoint_c>nine</dewpoint_c>
      <wind_dir_degrees>VRB</wind_dir_degrees>
      <wind_speed_kt>3</wind_speed_kt>
      <visibility_statute_mi>10+</visibility_statute_mi>
      <sky_condition sky_cover="CAVOK" />
      <flight_category>VFR</flight_category>
    </METAR>
  </data>
</response>`

const oddNumbers = `<response><errors /><data num_results="1">
  <METAR>
    <station_id>EGGD</station_id>
    <observation_time>2026-10-17T09:50:00Z</observation_time>
    <temp_c>12+</temp_c>
    <dewpoint_c>NaN</dewpoint_c>
    <wind_speed_kt>Inf</wind_speed_kt>
    <altim_in_hg>-Infinity</altim_in_hg>
    <visibility_statute_mi> 6+ </visibility_statute_mi>
    <sky_condition sky_cover="BKN" cloud_base_ft_agl="1200+" />
  </METAR>
</data></response>`

const emptyData = `<response><errors /><data num_results="0"></data></response>`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *ADDSProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewADDSProvider(srv.Client(), srv.URL, 0)
}

func TestFetchBatchParsesFields(t *testing.T) {
	var query atomic.Value
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		_, _ = w.Write([]byte(twoMetars))
	})

	metars, err := p.FetchBatch(context.Background(), []string{"EGKB", "EGHI"})
	require.NoError(t, err)
	require.Len(t, metars, 2)

	q := query.Load().(url.Values)
	assert.Equal(t, []string{"EGKB,EGHI"}, q["stationString"])
	assert.Equal(t, []string{"true"}, q["mostRecentForEachStation"])
	assert.Equal(t, []string{"metars"}, q["dataSource"])

	kb := metars[0]
	id, ok := kb.Identifier.Value()
	require.True(t, ok)
	assert.Equal(t, "EGKB", id)

	rt, ok := kb.ReportTime.Value()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 17, 9, 50, 0, 0, time.UTC), rt)

	vis, ok := kb.VisibilitySM.Value()
	require.True(t, ok)
	assert.InDelta(t, 6.21, vis, 1e-9)

	hpa, ok := kb.Pressure.Value()
	require.True(t, ok)
	assert.InDelta(t, 1021.0, hpa, 0.1)

	ceiling, ok := kb.Ceiling.Value()
	require.True(t, ok)
	assert.Equal(t, 1200.0, ceiling)

	cat, ok := kb.Category()
	require.True(t, ok)
	assert.Equal(t, weather.CategoryMVFR, cat)

	// Omitted elements are absent, not errored.
	assert.Equal(t, weather.FieldAbsent, kb.GustSpeed.State())
	assert.Equal(t, weather.FieldAbsent, kb.SnowDepth.State())
	assert.Equal(t, weather.FieldAbsent, kb.GustDirection.State())
}

func TestFetchBatchFieldErrors(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(twoMetars))
	})

	metars, err := p.FetchBatch(context.Background(), []string{"EGKB", "EGHI"})
	require.NoError(t, err)
	hi := metars[1]

	assert.True(t, hi.ReportTime.Errored())
	assert.True(t, hi.Temperature.Errored())
	assert.True(t, hi.Dewpoint.Errored())
	assert.Equal(t, weather.FieldAbsent, hi.Pressure.State())
	assert.Equal(t, weather.FieldAbsent, hi.Ceiling.State())

	dir, ok := hi.WindDirection.Value()
	require.True(t, ok)
	assert.Equal(t, "VRB", dir)

	vis, ok := hi.VisibilitySM.Value()
	require.True(t, ok)
	assert.InDelta(t, 10.0, vis, 1e-9)

	// The rest of the record still parsed.
	raw, ok := hi.Raw.Value()
	require.True(t, ok)
	assert.Contains(t, raw, "CAVOK")
}

func TestFetchBatchRejectsOddNumbers(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(oddNumbers))
	})

	metars, err := p.FetchBatch(context.Background(), []string{"EGGD"})
	require.NoError(t, err)
	require.Len(t, metars, 1)
	m := metars[0]

	assert.True(t, m.Temperature.Errored(), "plus suffix is only valid for visibility")
	assert.True(t, m.Dewpoint.Errored())
	assert.True(t, m.WindSpeed.Errored())
	assert.True(t, m.Pressure.Errored())
	assert.True(t, m.Ceiling.Errored())

	vis, ok := m.VisibilitySM.Value()
	require.True(t, ok)
	assert.InDelta(t, 6.0, vis, 1e-9)

	_, err = json.Marshal(m)
	assert.NoError(t, err)
}

func TestFetchOne(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("stationString") == "EGKA" {
			_, _ = w.Write([]byte(emptyData))
			return
		}
		assert.Equal(t, "true", r.URL.Query().Get("mostRecent"))
		_, _ = w.Write([]byte(twoMetars))
	})

	m, err := p.FetchOne(context.Background(), "EGKB")
	require.NoError(t, err)
	id, _ := m.Identifier.Value()
	assert.Equal(t, "EGKB", id)

	_, err = p.FetchOne(context.Background(), "EGKA")
	assert.ErrorIs(t, err, weather.ErrNoReport)
}

func TestFetchRegion(t *testing.T) {
	var station atomic.Value
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		station.Store(r.URL.Query().Get("stationString"))
		_, _ = w.Write([]byte(twoMetars))
	})

	metars, err := p.FetchRegion(context.Background(), "gb")
	require.NoError(t, err)
	assert.Len(t, metars, 2)
	assert.Equal(t, "~gb", station.Load())

	_, err = p.FetchRegion(context.Background(), "")
	assert.Error(t, err)
}

func TestFetchTransportErrors(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := p.FetchBatch(context.Background(), []string{"EGKB"})
	assert.ErrorIs(t, err, errServerError)

	p = newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<response><errors><error>Invalid station string</error></errors></response>`))
	})
	_, err = p.FetchBatch(context.Background(), []string{"??"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid station string")

	p = newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<response><data>`))
	})
	_, err = p.FetchBatch(context.Background(), []string{"EGKB"})
	assert.Error(t, err)
}

func TestFetchRetriesWithBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(twoMetars))
	}))
	t.Cleanup(srv.Close)

	p := NewADDSProvider(srv.Client(), srv.URL, 1)
	p.httpCfg.Backoff.InitialInterval = time.Millisecond

	metars, err := p.FetchBatch(context.Background(), []string{"EGKB", "EGHI"})
	require.NoError(t, err)
	assert.Len(t, metars, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchBatchEmptyIsNoop(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	metars, err := p.FetchBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, metars)
}
