// Package model holds the value types shared by the selection workflow,
// the prediction client, and the presentation layer.
package model

import "fmt"

// Point is a selected latitude/longitude pair. Points are compared by value
// and replaced, never mutated, when the user picks a new location.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// NewPoint returns the Point at lat/lng.
func NewPoint(lat, lng float64) Point {
	return Point{Lat: lat, Lng: lng}
}

// String formats the point with 5 decimal places, "lat, lng".
func (p Point) String() string {
	return fmt.Sprintf("%.5f, %.5f", p.Lat, p.Lng)
}
