// Package report compiles forecasts and alert bulletins into one plain-text
// weather report.
package report

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-report-service/internal/alerts"
	"github.com/kjstillabower/weather-report-service/internal/forecast"
	"github.com/kjstillabower/weather-report-service/internal/models"
	"github.com/kjstillabower/weather-report-service/internal/observability"
)

const (
	unitWMOCode = "wmo code"
	unitISO8601 = "iso8601"
)

// currentSkipped are bookkeeping fields of the current block that never render.
var currentSkipped = map[string]bool{"time": true, "interval": true, "is_day": true}

// ForecastFetcher is implemented by forecast.Client.
type ForecastFetcher interface {
	Fetch(ctx context.Context, point models.Point, metric bool) (*forecast.Snapshot, error)
}

// AlertFetcher is implemented by alerts.Client.
type AlertFetcher interface {
	Fetch(ctx context.Context, point models.Point) (*alerts.Envelope, error)
}

// Options configures a Compiler. A nil WeatherCodes uses DefaultWeatherCodes.
type Options struct {
	WeatherCodes map[int]string
}

// Compiler builds reports from the forecast and alert clients.
type Compiler struct {
	forecasts ForecastFetcher
	alerts    AlertFetcher
	codes     map[int]string
}

// NewCompiler creates a Compiler.
func NewCompiler(forecasts ForecastFetcher, alertFetcher AlertFetcher, opts Options) *Compiler {
	codes := opts.WeatherCodes
	if codes == nil {
		codes = DefaultWeatherCodes()
	}
	return &Compiler{forecasts: forecasts, alerts: alertFetcher, codes: codes}
}

// BuildReport returns the report for (lat, lon): an optional Bulletins section,
// then Current Conditions, then the 3-day Forecast. Any fetch or parse failure
// fails the whole report.
func (c *Compiler) BuildReport(ctx context.Context, lat, lon float64, metric bool) (string, error) {
	start := time.Now()
	text, err := c.build(ctx, models.Point{Lat: lat, Lon: lon}, metric)
	observability.ReportBuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ReportsBuiltTotal.WithLabelValues("error").Inc()
		observability.LoggerFromContext(ctx).Warn("report build failed",
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return "", err
	}
	observability.ReportsBuiltTotal.WithLabelValues("success").Inc()
	return text, nil
}

// Bulletins returns only the condensed alert text for point, "" when there is none.
func (c *Compiler) Bulletins(ctx context.Context, point models.Point) (string, error) {
	env, err := c.alerts.Fetch(ctx, point)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(alerts.CondenseAll(env)), nil
}

func (c *Compiler) build(ctx context.Context, point models.Point, metric bool) (string, error) {
	snap, err := c.forecasts.Fetch(ctx, point, metric)
	if err != nil {
		return "", err
	}
	bulletins, err := c.Bulletins(ctx, point)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if bulletins != "" {
		observability.BulletinsReportedTotal.Inc()
		b.WriteString("# Bulletins\n===========\n")
		b.WriteString(bulletins)
		b.WriteString("\n\n")
	}

	tz := snap.TimezoneAbbreviation
	title := "# Current Conditions (as of " + strings.ReplaceAll(snap.Time, "T", " ") + " " + tz + ")"
	b.WriteString(title + "\n" + strings.Repeat("=", utf8.RuneCountInString(title)) + "\n")
	for _, f := range snap.Current {
		if currentSkipped[f.Name] {
			continue
		}
		if line, ok := c.line(f.Name, f.Unit, f.Value); ok {
			b.WriteString(line)
		}
	}

	times, err := snap.DailyTimes()
	if err != nil {
		return "", err
	}
	thirdDay, err := times.At(2)
	if err != nil {
		return "", err
	}

	b.WriteString("\n# 3-day Forecast\n================\n")
	days := []struct {
		heading string
		index   int
	}{
		{"Today", 0},
		{"Tomorrow", 1},
		// The third heading names day 2 but its body repeats day 1.
		{thirdDay.Text(), 1},
	}
	for _, d := range days {
		body, err := c.daily(snap, d.index)
		if err != nil {
			return "", err
		}
		b.WriteString("### " + d.heading + "\n" + body + "\n")
	}

	return strings.TrimSpace(b.String()), nil
}

func (c *Compiler) daily(snap *forecast.Snapshot, index int) (string, error) {
	var b strings.Builder
	for _, s := range snap.Daily {
		if s.Name == "time" {
			continue
		}
		v, err := s.At(index)
		if err != nil {
			return "", err
		}
		text, unit := renderValue(v), s.Unit
		if unit == unitISO8601 {
			if i := strings.LastIndex(text, "T"); i >= 0 {
				text = text[i+1:]
			}
			unit = snap.TimezoneAbbreviation
		}
		if line, ok := c.formatLine(s.Name, unit, v, text); ok {
			b.WriteString(line)
		}
	}
	return b.String(), nil
}

func (c *Compiler) line(name, unit string, v forecast.Value) (string, bool) {
	return c.formatLine(name, unit, v, renderValue(v))
}

// formatLine renders "* Label: value unit". Weather codes become descriptions
// labelled "Weather"; codes missing from the table drop the line.
func (c *Compiler) formatLine(name, unit string, v forecast.Value, text string) (string, bool) {
	if unit == unitWMOCode {
		code, ok := v.Code()
		if !ok {
			return "", false
		}
		desc, known := c.codes[code]
		if !known {
			return "", false
		}
		name, unit, text = "weather", "", desc
	}
	return strings.TrimRight("* "+humanize(name)+": "+text+" "+unit, " ") + "\n", true
}

func renderValue(v forecast.Value) string {
	if v.IsNull() {
		return "n/a"
	}
	return v.Text()
}
