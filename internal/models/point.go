package models

import (
	"fmt"
	"strconv"
	"time"
)

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
}

// FormatCoord renders a coordinate with the shortest exact decimal form,
// so 47.6 stays "47.6" in URLs and cache keys.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// String returns "lat,lon".
func (p Point) String() string {
	return FormatCoord(p.Lat) + "," + FormatCoord(p.Lon)
}

// Report is a compiled text report for one point, as handed to publishers.
type Report struct {
	Point       Point     `json:"point"`
	Metric      bool      `json:"metric"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Key identifies the report's point and unit system.
func (r Report) Key() string {
	return fmt.Sprintf("%s:%t", r.Point, r.Metric)
}
