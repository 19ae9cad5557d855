package game

import (
	"time"

	"cropcraft.ai/internal/sim/crops"
	"cropcraft.ai/internal/sim/soil"
	"cropcraft.ai/internal/sim/weather"
)

// Engine is the external day-stepped biophysical crop model. The
// session depends only on this interface, never on engine internals.
//
// One simulated day maps onto the calls the session makes during a
// tick: Timer -> Integrate -> AgroManagement -> (injected events) ->
// CalcRates, with Terminate run when the engine has flagged
// termination. Variable reads must be side-effect-free.
type Engine interface {
	// Timer advances the engine clock by one step and reports the day
	// now being processed plus the elapsed step in days.
	Timer() (time.Time, float64)
	// Integrate folds the rates of the previous step into state.
	Integrate(day time.Time, delta float64)
	// AgroManagement runs the calendar/management step for day.
	AgroManagement(day time.Time, drv weather.Record)
	// CalcRates computes the day's rates from the driving variables.
	CalcRates(day time.Time, drv weather.Record)

	Terminated() bool
	Terminate(day time.Time)

	// Event injection. Effects land in the same day's rate
	// calculation when injected between AgroManagement and CalcRates.
	Irrigate(amountCm, efficiency float64)
	ApplyNitrogen(app NitrogenApplication)
	FinishCrop(day time.Time, reason string, remove bool)

	// Variable reads a named state variable. Unknown names error; the
	// session drops that single field from the snapshot.
	Variable(name string) (any, error)
}

// NitrogenApplication is one fertilizer event.
type NitrogenApplication struct {
	AmountKgHa       float64
	ApplicationDepth float64 // cm
	CNRatio          float64
	InitialAge       float64
	NH4Fraction      float64
	NO3Fraction      float64
	OrganicFraction  float64
}

// Setup is everything an engine implementation needs at planting.
type Setup struct {
	Crop    string
	Variety string
	Params  crops.Variety

	Sowing          time.Time
	MaxDurationDays int

	Profile soil.Profile
	Site    soil.SiteParameters
}

// EngineFactory constructs a fresh engine for one planting.
type EngineFactory func(Setup) Engine
