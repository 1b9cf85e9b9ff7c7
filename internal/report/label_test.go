package report

import "testing"

func TestHumanize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"temperature_2m", "Temperature"},
		{"temperature_2m_max", "Temperature Max"},
		{"wind_speed_10m", "Wind Speed"},
		{"wind_direction_10m_dominant", "Wind Direction Dominant"},
		{"relative_humidity_2m", "Relative Humidity"},
		{"uv_index_clear_sky_max", "Uv Index Clear Sky Max"},
		{"pressure_msl", "Pressure Msl"},
		{"weather", "Weather"},
		{"precipitation_probability_max", "Precipitation Probability Max"},
		{"cloud_cover_2mx", "Cloud Cover 2Mx"},
	}
	for _, tt := range tests {
		if got := humanize(tt.in); got != tt.want {
			t.Errorf("humanize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"hello world": "Hello World",
		"HELLO":       "Hello",
		"10m gusts":   "10M Gusts",
		"o'neil":      "O'Neil",
		"":            "",
	}
	for in, want := range tests {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}
