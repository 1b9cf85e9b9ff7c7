package forecast

import (
	"strconv"
	"strings"
)

// Fields is the versioned set of blocks and horizons requested from the forecast service.
type Fields struct {
	Current            []string
	Minutely15         []string
	Hourly             []string
	Daily              []string
	ForecastDays       int
	ForecastHours      int
	ForecastMinutely15 int
}

// DefaultFields is the request shape reports are compiled from: a 3-day daily
// horizon and 24 steps of hourly and 15-minute data.
var DefaultFields = Fields{
	Current: []string{
		"weather_code", "temperature_2m", "relative_humidity_2m", "apparent_temperature",
		"is_day", "precipitation", "rain", "showers", "snowfall", "cloud_cover",
		"pressure_msl", "surface_pressure", "wind_speed_10m", "wind_direction_10m",
		"wind_gusts_10m",
	},
	Minutely15: []string{
		"precipitation", "rain", "snowfall", "weather_code", "wind_speed_10m",
		"wind_direction_80m", "wind_gusts_10m",
	},
	Hourly: []string{
		"temperature_2m", "relative_humidity_2m", "dew_point_2m", "apparent_temperature",
		"precipitation_probability", "precipitation", "rain", "showers", "snowfall",
		"snow_depth", "weather_code", "pressure_msl", "surface_pressure", "cloud_cover",
		"cloud_cover_low", "cloud_cover_mid", "cloud_cover_high", "visibility",
		"wind_speed_10m", "wind_direction_10m", "wind_gusts_10m", "uv_index",
	},
	Daily: []string{
		"weather_code", "temperature_2m_max", "temperature_2m_min",
		"apparent_temperature_max", "apparent_temperature_min", "sunrise", "sunset",
		"uv_index_max", "uv_index_clear_sky_max", "precipitation_sum", "rain_sum",
		"showers_sum", "snowfall_sum", "precipitation_hours",
		"precipitation_probability_max", "wind_speed_10m_max", "wind_gusts_10m_max",
		"wind_direction_10m_dominant",
	},
	ForecastDays:       3,
	ForecastHours:      24,
	ForecastMinutely15: 24,
}

// imperialUnits are appended when a report is requested in imperial units.
var imperialUnits = [][2]string{
	{"temperature_unit", "fahrenheit"},
	{"wind_speed_unit", "mph"},
	{"precipitation_unit", "inch"},
}

func (f Fields) params() [][2]string {
	return [][2]string{
		{"current", strings.Join(f.Current, ",")},
		{"minutely_15", strings.Join(f.Minutely15, ",")},
		{"hourly", strings.Join(f.Hourly, ",")},
		{"daily", strings.Join(f.Daily, ",")},
		{"timezone", "auto"},
		{"forecast_days", strconv.Itoa(f.ForecastDays)},
		{"forecast_hours", strconv.Itoa(f.ForecastHours)},
		{"forecast_minutely_15", strconv.Itoa(f.ForecastMinutely15)},
	}
}
