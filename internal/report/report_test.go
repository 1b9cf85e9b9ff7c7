package report

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-report-service/internal/alerts"
	"github.com/kjstillabower/weather-report-service/internal/client"
	"github.com/kjstillabower/weather-report-service/internal/forecast"
	"github.com/kjstillabower/weather-report-service/internal/models"
)

type stubForecasts struct {
	snap  *forecast.Snapshot
	err   error
	calls []bool
}

func (s *stubForecasts) Fetch(ctx context.Context, point models.Point, metric bool) (*forecast.Snapshot, error) {
	s.calls = append(s.calls, metric)
	return s.snap, s.err
}

type stubAlerts struct {
	env *alerts.Envelope
	err error
}

func (s *stubAlerts) Fetch(ctx context.Context, point models.Point) (*alerts.Envelope, error) {
	return s.env, s.err
}

func loadSnapshot(t *testing.T, path string) *forecast.Snapshot {
	t.Helper()
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	snap, err := forecast.Parse(body)
	require.NoError(t, err)
	return snap
}

func parseSnapshot(t *testing.T, body string) *forecast.Snapshot {
	t.Helper()
	snap, err := forecast.Parse([]byte(body))
	require.NoError(t, err)
	return snap
}

var windAdvisory = alerts.Record{
	Headline:    "Wind Advisory issued May 1",
	Severity:    "Moderate",
	Urgency:     "Expected",
	Certainty:   "Likely",
	Instruction: "Secure outdoor objects.",
	Parameters:  &alerts.Parameters{NWSHeadline: []string{"WIND ADVISORY IN EFFECT"}},
}

func TestCompiler_BuildReport_Golden(t *testing.T) {
	want, err := os.ReadFile("testdata/report_metric.golden")
	require.NoError(t, err)

	fc := &stubForecasts{snap: loadSnapshot(t, "testdata/forecast_metric.json")}
	c := NewCompiler(fc, &stubAlerts{env: &alerts.Envelope{Graph: []alerts.Record{}}}, Options{})

	got, err := c.BuildReport(context.Background(), 47.6, -122.3, true)
	require.NoError(t, err)
	assert.Equal(t, string(want), got)
	assert.Equal(t, []bool{true}, fc.calls)
}

// TestCompiler_BuildReport_SectionOrder verifies Bulletins precede Current
// Conditions which precede the 3-day Forecast.
func TestCompiler_BuildReport_SectionOrder(t *testing.T) {
	fc := &stubForecasts{snap: loadSnapshot(t, "testdata/forecast_metric.json")}
	ac := &stubAlerts{env: &alerts.Envelope{Graph: []alerts.Record{windAdvisory}}}
	c := NewCompiler(fc, ac, Options{})

	got, err := c.BuildReport(context.Background(), 47.6, -122.3, true)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(got, "# Bulletins\n===========\n**WIND ADVISORY IN EFFECT**\n"))
	assert.Contains(t, got, "Moderate / Expected / Likely\nInstruction: Secure outdoor objects.\n\n# Current Conditions")

	bulletins := strings.Index(got, "# Bulletins")
	current := strings.Index(got, "# Current Conditions")
	forecastIdx := strings.Index(got, "# 3-day Forecast")
	assert.True(t, bulletins < current && current < forecastIdx, "sections out of order:\n%s", got)
}

// TestCompiler_BuildReport_BulletinsOnlyWhenNonBlank verifies the Bulletins
// section is omitted when no record condenses to text.
func TestCompiler_BuildReport_BulletinsOnlyWhenNonBlank(t *testing.T) {
	snap := loadSnapshot(t, "testdata/forecast_metric.json")
	envelopes := map[string]*alerts.Envelope{
		"empty graph":          {Graph: []alerts.Record{}},
		"out of bounds":        {Graph: []alerts.Record{}, Title: alerts.OutOfBoundsTitle},
		"no reportable record": {Graph: []alerts.Record{{Headline: "Test Message", Severity: "Minor"}}},
	}
	for name, env := range envelopes {
		t.Run(name, func(t *testing.T) {
			c := NewCompiler(&stubForecasts{snap: snap}, &stubAlerts{env: env}, Options{})
			got, err := c.BuildReport(context.Background(), 47.6, -122.3, true)
			require.NoError(t, err)
			assert.NotContains(t, got, "# Bulletins")
			assert.True(t, strings.HasPrefix(got, "# Current Conditions"))
		})
	}
}

func TestCompiler_BuildReport_WeatherCodes(t *testing.T) {
	const tmpl = `{
		"timezone_abbreviation": "UTC",
		"current_units": {"time": "iso8601", "weather_code": "wmo code"},
		"current": {"time": "2024-05-01T00:00", "weather_code": CODE},
		"daily_units": {"time": "iso8601"},
		"daily": {"time": ["a", "b", "c"]}
	}`
	tests := []struct {
		code string
		want string
	}{
		{"0", "* Weather: Sunny\n"},
		{"95", "* Weather: Thunderstorm\n"},
		{"3.0", "* Weather: Cloudy\n"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			snap := parseSnapshot(t, strings.Replace(tmpl, "CODE", tt.code, 1))
			c := NewCompiler(&stubForecasts{snap: snap}, &stubAlerts{env: &alerts.Envelope{}}, Options{})
			got, err := c.BuildReport(context.Background(), 0, 0, true)
			require.NoError(t, err)
			assert.Contains(t, got, tt.want)
		})
	}

	for _, code := range []string{"999", "2.5", `"0"`, "null"} {
		t.Run("omitted "+code, func(t *testing.T) {
			snap := parseSnapshot(t, strings.Replace(tmpl, "CODE", code, 1))
			c := NewCompiler(&stubForecasts{snap: snap}, &stubAlerts{env: &alerts.Envelope{}}, Options{})
			got, err := c.BuildReport(context.Background(), 0, 0, true)
			require.NoError(t, err)
			assert.NotContains(t, got, "Weather")
			assert.NotContains(t, got, strings.Trim(code, `"`)+"\n")
		})
	}
}

func TestCompiler_BuildReport_InjectedCodeTable(t *testing.T) {
	snap := parseSnapshot(t, `{
		"timezone_abbreviation": "UTC",
		"current_units": {"time": "iso8601", "weather_code": "wmo code"},
		"current": {"time": "2024-05-01T00:00", "weather_code": 999},
		"daily_units": {"time": "iso8601"},
		"daily": {"time": ["a", "b", "c"]}
	}`)
	c := NewCompiler(&stubForecasts{snap: snap}, &stubAlerts{env: &alerts.Envelope{}},
		Options{WeatherCodes: map[int]string{999: "Volcanic Ash"}})

	got, err := c.BuildReport(context.Background(), 0, 0, true)
	require.NoError(t, err)
	assert.Contains(t, got, "* Weather: Volcanic Ash")
}

// TestCompiler_BuildReport_ThirdDayRepeatsTomorrow verifies the third heading
// uses daily.time[2] while its body repeats day index 1.
func TestCompiler_BuildReport_ThirdDayRepeatsTomorrow(t *testing.T) {
	snap := parseSnapshot(t, `{
		"timezone_abbreviation": "UTC",
		"current_units": {"time": "iso8601"},
		"current": {"time": "2024-05-01T00:00"},
		"daily_units": {"time": "iso8601", "rain_sum": "mm"},
		"daily": {"time": ["2024-05-01", "2024-05-02", "2024-05-03"], "rain_sum": [1, 2, 3]}
	}`)
	c := NewCompiler(&stubForecasts{snap: snap}, &stubAlerts{env: &alerts.Envelope{}}, Options{})

	got, err := c.BuildReport(context.Background(), 0, 0, true)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got,
		"### Today\n* Rain Sum: 1 mm\n\n### Tomorrow\n* Rain Sum: 2 mm\n\n### 2024-05-03\n* Rain Sum: 2 mm"), got)
}

func TestCompiler_BuildReport_ShortDailyIsParseError(t *testing.T) {
	snap := parseSnapshot(t, `{
		"timezone_abbreviation": "UTC",
		"current_units": {"time": "iso8601"},
		"current": {"time": "2024-05-01T00:00"},
		"daily_units": {"time": "iso8601"},
		"daily": {"time": ["2024-05-01", "2024-05-02"]}
	}`)
	c := NewCompiler(&stubForecasts{snap: snap}, &stubAlerts{env: &alerts.Envelope{}}, Options{})

	_, err := c.BuildReport(context.Background(), 0, 0, true)
	var pe *client.ParseError
	assert.True(t, errors.As(err, &pe), "got %v", err)
}

func TestCompiler_BuildReport_PropagatesFetchErrors(t *testing.T) {
	snap := loadSnapshot(t, "testdata/forecast_metric.json")
	forecastErr := &client.FetchError{Service: forecast.Service, Status: 502}
	alertErr := &client.FetchError{Service: alerts.Service, Status: 500}

	c := NewCompiler(&stubForecasts{err: forecastErr}, &stubAlerts{env: &alerts.Envelope{}}, Options{})
	_, err := c.BuildReport(context.Background(), 1, 2, true)
	assert.ErrorIs(t, err, forecastErr)

	c = NewCompiler(&stubForecasts{snap: snap}, &stubAlerts{err: alertErr}, Options{})
	_, err = c.BuildReport(context.Background(), 1, 2, true)
	assert.ErrorIs(t, err, alertErr)
}

func TestCompiler_Bulletins(t *testing.T) {
	c := NewCompiler(&stubForecasts{}, &stubAlerts{env: &alerts.Envelope{Graph: []alerts.Record{windAdvisory}}}, Options{})
	got, err := c.Bulletins(context.Background(), models.Point{Lat: 1, Lon: 2})
	require.NoError(t, err)
	assert.Equal(t, "**WIND ADVISORY IN EFFECT**\nModerate / Expected / Likely\nInstruction: Secure outdoor objects.", got)
}

func TestDefaultWeatherCodes_ReturnsCopy(t *testing.T) {
	codes := DefaultWeatherCodes()
	codes[0] = "Changed"
	assert.Equal(t, "Sunny", DefaultWeatherCodes()[0])
	assert.Len(t, DefaultWeatherCodes(), 28)
}
