// Package simulator talks to the impact simulator: the service that turns
// asteroid parameters into physical effects. Only BlastRadius and
// AffectedPopulation are consumed by the challenge engine; the other fields
// are passed through for display.
package simulator

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable wraps every transport, status, or decode failure.
var ErrUnavailable = errors.New("impact simulator unavailable")

var ErrInvalidRequest = errors.New("invalid simulation request")

type Location string

const (
	Ocean   Location = "ocean"
	Coastal Location = "coastal"
	Land    Location = "land"
)

func (l Location) Valid() bool {
	switch l {
	case Ocean, Coastal, Land:
		return true
	}
	return false
}

func (l Location) Wet() bool { return l == Ocean || l == Coastal }

type Request struct {
	Size     float64  `json:"size"`  // diameter, m
	Speed    float64  `json:"speed"` // km/s
	Angle    float64  `json:"angle"` // degrees
	Location Location `json:"location"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
}

func (r Request) Validate() error {
	switch {
	case r.Size < 0:
		return fmt.Errorf("%w: size %v", ErrInvalidRequest, r.Size)
	case r.Speed < 0:
		return fmt.Errorf("%w: speed %v", ErrInvalidRequest, r.Speed)
	case r.Lat < -90 || r.Lat > 90:
		return fmt.Errorf("%w: lat %v", ErrInvalidRequest, r.Lat)
	case r.Lng < -180 || r.Lng > 180:
		return fmt.Errorf("%w: lng %v", ErrInvalidRequest, r.Lng)
	case r.Location != "" && !r.Location.Valid():
		return fmt.Errorf("%w: location %q", ErrInvalidRequest, r.Location)
	}
	return nil
}

type Result struct {
	Energy             float64  `json:"energy"`          // megatons TNT
	CraterDiameter     float64  `json:"crater_diameter"` // km
	SeismicMagnitude   float64  `json:"seismic_magnitude"`
	TsunamiHeight      float64  `json:"tsunami_height"` // m
	BlastRadius        float64  `json:"blast_radius"`   // km
	AffectedPopulation int64    `json:"affected_population"`
	ImpactLat          float64  `json:"impact_lat"`
	ImpactLng          float64  `json:"impact_lng"`
	LocationType       Location `json:"impact_location_type"`
	ElevationM         float64  `json:"elevation_m"`
	VelocityKmS        float64  `json:"velocity_km_s"`
	AsteroidSizeM      float64  `json:"asteroid_size_m"`
}

// Simulator is the collaborator the challenge resolver calls.
type Simulator interface {
	Simulate(ctx context.Context, req Request) (Result, error)
}

// Func adapts a plain function.
type Func func(ctx context.Context, req Request) (Result, error)

func (f Func) Simulate(ctx context.Context, req Request) (Result, error) { return f(ctx, req) }
