package challenge

import (
	"fmt"

	"impactx/simulator"
)

// Scenario is the baseline threat for a challenge. It is never mutated
// once a session has started.
type Scenario struct {
	SizeM     float64            `json:"size_m" yaml:"size_m"`
	SpeedKmS  float64            `json:"speed_km_s" yaml:"speed_km_s"`
	AngleDeg  float64            `json:"angle_deg" yaml:"angle_deg"`
	ImpactLat float64            `json:"impact_lat" yaml:"impact_lat"`
	ImpactLng float64            `json:"impact_lng" yaml:"impact_lng"`
	Location  simulator.Location `json:"location" yaml:"location"`
}

// DefaultScenario is a large, fast impactor aimed at Los Angeles.
func DefaultScenario() Scenario {
	return Scenario{
		SizeM:     2500,
		SpeedKmS:  35,
		AngleDeg:  45,
		ImpactLat: 34.0522,
		ImpactLng: -118.2437,
		Location:  simulator.Ocean,
	}
}

func (s Scenario) Validate() error {
	switch {
	case s.SizeM <= 0:
		return fmt.Errorf("scenario size must be positive, got %v", s.SizeM)
	case s.SpeedKmS <= 0:
		return fmt.Errorf("scenario speed must be positive, got %v", s.SpeedKmS)
	case s.ImpactLat < -90 || s.ImpactLat > 90:
		return fmt.Errorf("scenario latitude out of range: %v", s.ImpactLat)
	case s.ImpactLng < -180 || s.ImpactLng > 180:
		return fmt.Errorf("scenario longitude out of range: %v", s.ImpactLng)
	case s.Location != "" && !s.Location.Valid():
		return fmt.Errorf("scenario location %q not one of ocean, coastal, land", s.Location)
	}
	return nil
}

// Request is the unmodified threat as a simulator request.
func (s Scenario) Request() simulator.Request {
	loc := s.Location
	if loc == "" {
		loc = simulator.Ocean
	}
	return simulator.Request{
		Size:     s.SizeM,
		Speed:    s.SpeedKmS,
		Angle:    s.AngleDeg,
		Location: loc,
		Lat:      s.ImpactLat,
		Lng:      s.ImpactLng,
	}
}
