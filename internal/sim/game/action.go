package game

import "time"

// Fixed constants for nitrogen-application events.
const (
	nitrogenApplicationDepth = 10.0
	nitrogenCNRatio          = 8.0
	nitrogenInitialAge       = 0.1
)

type ActionKind int

const (
	ActionIrrigate ActionKind = iota + 1
	ActionFertilize
	ActionTerminate
)

func (k ActionKind) String() string {
	switch k {
	case ActionIrrigate:
		return "irrigate"
	case ActionFertilize:
		return "fertilize"
	case ActionTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Action is a tagged-variant player command. The variant fields used
// depend on Kind; Apply dispatches on it. One Action is applied to the
// engine at most once.
type Action struct {
	Kind ActionKind

	// ActionIrrigate
	AmountCm   float64
	Efficiency float64

	// ActionFertilize
	AmountKgHa  float64
	NH4Fraction float64
	NO3Fraction float64

	// ActionTerminate
	Reason string
	Remove bool
}

// Apply injects the action's event into the engine.
func Apply(e Engine, a Action) {
	switch a.Kind {
	case ActionIrrigate:
		e.Irrigate(a.AmountCm, a.Efficiency)
	case ActionFertilize:
		e.ApplyNitrogen(NitrogenApplication{
			AmountKgHa:       a.AmountKgHa,
			ApplicationDepth: nitrogenApplicationDepth,
			CNRatio:          nitrogenCNRatio,
			InitialAge:       nitrogenInitialAge,
			NH4Fraction:      a.NH4Fraction,
			NO3Fraction:      a.NO3Fraction,
			OrganicFraction:  0.0,
		})
	case ActionTerminate:
		day, _ := currentEngineDay(e)
		e.FinishCrop(day, a.Reason, a.Remove)
	}
}

// currentEngineDay asks the engine for its own day via the DAY
// variable when available; engines that do not expose it get the zero
// time and interpret the finish event as "today".
func currentEngineDay(e Engine) (time.Time, bool) {
	v, err := e.Variable("DAY")
	if err != nil {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	return time.Time{}, false
}
