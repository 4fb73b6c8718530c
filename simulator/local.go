package simulator

import (
	"context"
	"math"
)

// Simplified impact model. The constants match the public web simulator so
// scores computed in-process line up with the hosted service.
const (
	pi                 = 3.14159
	asteroidDensity    = 3000.0 // kg/m^3, stony
	targetDensityLand  = 2700.0
	targetDensityWater = 1025.0
	avgOceanDepth      = 4000.0 // m
	popDensityPerSqKm  = 150.0
	joulesPerMegaton   = 4.184e15
)

// Local estimates impact effects without leaving the process.
type Local struct{}

func (Local) Simulate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	return Estimate(req), nil
}

// Estimate runs the model. Inputs are assumed valid.
func Estimate(req Request) Result {
	loc := req.Location
	if loc == "" {
		loc = Ocean
	}

	diameter := math.Max(req.Size, 0)
	velocity := math.Max(req.Speed, 0) * 1000.0
	angle := req.Angle * math.Pi / 180.0

	radius := diameter / 2.0
	volume := (4.0 / 3.0) * pi * radius * radius * radius
	mass := asteroidDensity * volume
	kinetic := 0.5 * mass * velocity * velocity
	megatons := kinetic / joulesPerMegaton

	target := targetDensityLand
	depth := 0.0
	if loc.Wet() {
		target = targetDensityWater
		depth = avgOceanDepth
	}

	// Holsapple-Schmidt, simplified
	craterM := 1.161 *
		math.Cbrt(target/asteroidDensity) *
		math.Pow(diameter, 0.78) *
		math.Pow(math.Max(velocity, 1.0), 0.44) *
		math.Cbrt(math.Max(math.Sin(angle), 0.1))

	seismic := 0.0
	if kinetic > 0 {
		seismic = 0.67*math.Log10(kinetic) - 5.87
	}

	tsunami := 0.0
	if loc.Wet() {
		tsunami = 8.5 * math.Sqrt(megatons) * math.Pow(math.Max(depth, 1.0)/4000.0, -0.25)
	}

	blastKm := 3.0 * math.Pow(megatons, 0.33)
	population := int64(pi * blastKm * blastKm * popDensityPerSqKm)

	return Result{
		Energy:             round(megatons, 2),
		CraterDiameter:     round(craterM/1000.0, 2),
		SeismicMagnitude:   math.Max(0, round(seismic, 1)),
		TsunamiHeight:      round(tsunami, 1),
		BlastRadius:        round(blastKm, 2),
		AffectedPopulation: population,
		ImpactLat:          req.Lat,
		ImpactLng:          req.Lng,
		LocationType:       loc,
		ElevationM:         round(depth, 2),
		VelocityKmS:        round(req.Speed, 2),
		AsteroidSizeM:      round(diameter, 2),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
