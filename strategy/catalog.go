package strategy

import (
	"errors"
	"fmt"
)

// Kind identifies a mitigation strategy. The string values are the ones
// clients send over the wire.
type Kind string

const (
	Kinetic Kind = "kinetic"
	Gravity Kind = "gravity"
	Nuclear Kind = "nuclear"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Profile holds the effect modifiers for a strategy. Speed and size deltas
// are only applied when the deflection attempt succeeds.
type Profile struct {
	Kind          Kind    `json:"kind"`
	Name          string  `json:"name"`
	Desc          string  `json:"desc"`
	SuccessChance float64 `json:"success_chance"` // (0,1]
	SpeedDelta    float64 `json:"speed_delta"`    // km/s
	SizeDelta     float64 `json:"size_delta"`     // m, may be negative
}

var catalog = map[Kind]Profile{
	Kinetic: {
		Kind:          Kinetic,
		Name:          "Kinetic Impactor",
		Desc:          "Ram a spacecraft into the asteroid to nudge its velocity.",
		SuccessChance: 0.7,
		SpeedDelta:    -5,
		SizeDelta:     0,
	},
	Gravity: {
		Kind:          Gravity,
		Name:          "Gravity Tractor",
		Desc:          "Park a heavy spacecraft nearby and let gravity tug it off course.",
		SuccessChance: 0.4,
		SpeedDelta:    -2,
		SizeDelta:     0,
	},
	Nuclear: {
		Kind:          Nuclear,
		Name:          "Nuclear Device",
		Desc:          "Detonate a standoff device to vaporize part of the surface.",
		SuccessChance: 0.95,
		SpeedDelta:    -10,
		SizeDelta:     -500,
	},
}

// order is the display order, also used for deterministic iteration.
var order = []Kind{Kinetic, Gravity, Nuclear}

// ProfileOf returns the catalog entry for k.
func ProfileOf(k Kind) (Profile, error) {
	p, ok := catalog[k]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, string(k))
	}
	return p, nil
}

// Kinds lists every strategy in display order.
func Kinds() []Kind {
	out := make([]Kind, len(order))
	copy(out, order)
	return out
}

// Profiles lists every profile in display order.
func Profiles() []Profile {
	out := make([]Profile, 0, len(order))
	for _, k := range order {
		out = append(out, catalog[k])
	}
	return out
}

func (k Kind) Valid() bool {
	_, ok := catalog[k]
	return ok
}
