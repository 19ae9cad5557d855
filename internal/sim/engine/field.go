// Package engine is the built-in day-stepped crop model. It stands in
// for the external biophysical engine behind the game.Engine
// interface: a deliberately simplified but deterministic water,
// nitrogen and growth balance good enough to make the game playable
// end to end.
package engine

import (
	"fmt"
	"math"
	"time"

	"cropcraft.ai/internal/sim/game"
	"cropcraft.ai/internal/sim/weather"
)

const extinctionCoeff = 0.5 // canopy light extinction

// rates computed by CalcRates and folded into state by the next
// Integrate call.
type rates struct {
	dTSum  float64
	dLAI   float64
	dTAGP  float64
	dTWSO  float64
	dSM    []float64
	dNH4   []float64
	dNO3   []float64
	tra    float64
	evs    float64
	uptake float64
}

// Field implements game.Engine.
type Field struct {
	setup game.Setup

	day     time.Time
	started bool
	daysRun int

	tsum float64
	dvs  float64
	lai  float64
	tagp float64
	twso float64
	tra  float64
	evs  float64

	sm  []float64 // volumetric moisture per layer
	nh4 []float64 // kg N/ha per layer
	no3 []float64

	pending rates

	// events injected for the day being processed
	irrigationCm float64
	fertApps     []game.NitrogenApplication
	finishReason string
	finishRemove bool

	terminated bool
	removed    bool
}

// New builds a fresh field for one planting. Moisture starts at field
// capacity; mineral nitrogen from the site's per-layer initial
// concentrations.
func New(s game.Setup) game.Engine {
	n := len(s.Profile.Layers)
	f := &Field{
		setup: s,
		day:   s.Sowing,
		sm:    make([]float64, n),
		nh4:   make([]float64, n),
		no3:   make([]float64, n),
	}
	for i := range f.sm {
		f.sm[i] = s.Profile.FieldCapacity
		f.nh4[i] = s.Site.NH4Initial[i]
		f.no3[i] = s.Site.NO3Initial[i]
	}
	return f
}

func (f *Field) Timer() (time.Time, float64) {
	if f.started {
		f.day = f.day.AddDate(0, 0, 1)
	}
	f.started = true
	return f.day, 1.0
}

func (f *Field) Integrate(day time.Time, delta float64) {
	p := f.pending
	f.pending = rates{}

	f.tsum += p.dTSum * delta
	f.lai = math.Max(0, f.lai+p.dLAI*delta)
	f.tagp += p.dTAGP * delta
	f.twso += p.dTWSO * delta
	for i := range f.sm {
		if i < len(p.dSM) {
			f.sm[i] = clampMoisture(f.sm[i]+p.dSM[i]*delta, f.setup.Profile.WiltingPoint, f.setup.Profile.Saturation)
		}
		if i < len(p.dNH4) {
			f.nh4[i] = math.Max(0, f.nh4[i]+p.dNH4[i]*delta)
		}
		if i < len(p.dNO3) {
			f.no3[i] = math.Max(0, f.no3[i]+p.dNO3[i]*delta)
		}
	}
	f.tra = p.tra
	f.evs = p.evs

	f.dvs = f.developmentStage()
}

func (f *Field) developmentStage() float64 {
	p := f.setup.Params
	emerge := p.TSumEmergence
	if f.tsum <= emerge {
		return 0
	}
	if p.TSum1 <= 0 {
		return 0
	}
	post := f.tsum - emerge
	if post <= p.TSum1 {
		return post / p.TSum1
	}
	if p.TSum2 <= 0 {
		return 1
	}
	return math.Min(2.0, 1.0+(post-p.TSum1)/p.TSum2)
}

func (f *Field) AgroManagement(day time.Time, drv weather.Record) {
	f.daysRun++
	if f.daysRun > f.setup.MaxDurationDays {
		f.terminated = true
	}
}

func (f *Field) Irrigate(amountCm, efficiency float64) {
	f.irrigationCm += amountCm * efficiency
}

func (f *Field) ApplyNitrogen(app game.NitrogenApplication) {
	f.fertApps = append(f.fertApps, app)
}

func (f *Field) FinishCrop(day time.Time, reason string, remove bool) {
	f.finishReason = reason
	f.finishRemove = remove
}

func (f *Field) CalcRates(day time.Time, drv weather.Record) {
	profile := f.setup.Profile
	params := f.setup.Params
	n := len(f.sm)

	r := rates{
		dSM:  make([]float64, n),
		dNH4: make([]float64, n),
		dNO3: make([]float64, n),
	}

	// Phenology.
	r.dTSum = math.Max(0, drv.Temp-params.TBase)

	// Fertilizer events land in the layers covered by the application
	// depth, split by the ammonium/nitrate fractions.
	for _, app := range f.fertApps {
		depth := app.ApplicationDepth
		var covered float64
		for i, layer := range profile.Layers {
			if covered >= depth {
				break
			}
			frac := math.Min(layer.Thickness, depth-covered) / depth
			r.dNH4[i] += app.AmountKgHa * app.NH4Fraction * frac
			r.dNO3[i] += app.AmountKgHa * app.NO3Fraction * frac
			covered += layer.Thickness
		}
	}
	f.fertApps = nil

	cropAlive := f.dvs > 0 && !f.removed && f.finishReason == ""

	// Canopy interception and water demand.
	fCover := 1.0 - math.Exp(-extinctionCoeff*f.lai)
	potentialTra := drv.ET0 * fCover
	potentialEvs := drv.ES0 * (1.0 - fCover)

	// Moisture-limited supply over the rooted layers.
	avail := f.availableWaterFraction()
	r.tra = 0
	if cropAlive {
		r.tra = potentialTra * avail
	}
	r.evs = potentialEvs * math.Max(0.25, f.topLayerWetness())

	// Water balance: infiltration fills layers to field capacity top
	// down; extraction is drawn proportionally from the rooted zone.
	infiltration := drv.Rain + f.irrigationCm
	f.irrigationCm = 0
	remaining := infiltration
	for i, layer := range profile.Layers {
		room := (profile.FieldCapacity - f.sm[i]) * layer.Thickness
		if room <= 0 {
			continue
		}
		add := math.Min(room, remaining)
		r.dSM[i] += add / layer.Thickness
		remaining -= add
		if remaining <= 0 {
			break
		}
	}
	extraction := r.tra + r.evs
	totalDepth := profile.RootableDepth
	for i, layer := range profile.Layers {
		share := layer.Thickness / totalDepth
		r.dSM[i] -= extraction * share / layer.Thickness
	}

	// Nitrogen-limited, light-driven growth.
	if cropAlive {
		nAvail := f.mineralN()
		demand := params.NUptakeMax
		r.uptake = math.Min(demand, nAvail)
		nStress := 1.0
		if demand > 0 {
			nStress = clamp01(r.uptake / demand)
		}
		stress := math.Min(avail, nStress)

		irradMJ := drv.Irrad / 1_000_000.0
		assim := params.RUE * irradMJ * fCover * stress // g/m2 ~ 10 kg/ha
		r.dTAGP = assim * 10.0
		if f.dvs > 1.0 {
			r.dTWSO = params.StorageFraction * r.dTAGP
		}

		// Uptake drains mineral N proportionally.
		if nAvail > 0 {
			for i := range f.nh4 {
				frac := (f.nh4[i] + f.no3[i]) / nAvail
				take := r.uptake * frac
				pool := f.nh4[i] + f.no3[i]
				if pool > 0 {
					r.dNH4[i] -= take * f.nh4[i] / pool
					r.dNO3[i] -= take * f.no3[i] / pool
				}
			}
		}

		// Leaf growth up to the cap before anthesis, senescence after.
		switch {
		case f.dvs < 1.0:
			r.dLAI = (params.LAIMax - f.lai) * 0.05 * stress
		case f.dvs > 1.3:
			r.dLAI = -f.lai * 0.03
		}
	}

	f.pending = r

	if f.finishReason != "" {
		f.terminated = true
		if f.finishRemove {
			f.removed = true
		}
	}
	if f.dvs >= 2.0 {
		f.terminated = true
	}
}

func (f *Field) Terminated() bool { return f.terminated }

func (f *Field) Terminate(day time.Time) {
	f.terminated = true
}

func (f *Field) availableWaterFraction() float64 {
	profile := f.setup.Profile
	span := profile.FieldCapacity - profile.WiltingPoint
	if span <= 0 {
		return 0
	}
	var weighted float64
	for i, layer := range profile.Layers {
		frac := clamp01((f.sm[i] - profile.WiltingPoint) / span)
		weighted += frac * layer.Thickness
	}
	return clamp01(weighted / profile.RootableDepth)
}

func (f *Field) topLayerWetness() float64 {
	profile := f.setup.Profile
	span := profile.FieldCapacity - profile.WiltingPoint
	if span <= 0 || len(f.sm) == 0 {
		return 0
	}
	return clamp01((f.sm[0] - profile.WiltingPoint) / span)
}

func (f *Field) mineralN() float64 {
	var total float64
	for i := range f.nh4 {
		total += f.nh4[i] + f.no3[i]
	}
	return total
}

func (f *Field) Variable(name string) (any, error) {
	switch name {
	case "DAY":
		return f.day, nil
	case "DVS":
		return f.dvs, nil
	case "LAI":
		return f.lai, nil
	case "SM":
		return append([]float64(nil), f.sm...), nil
	case "TAGP":
		return f.tagp, nil
	case "TWSO":
		return f.twso, nil
	case "TRA":
		return f.tra, nil
	case "EVS":
		return f.evs, nil
	case "NMIN":
		return f.mineralN(), nil
	default:
		return nil, fmt.Errorf("unknown state variable %q", name)
	}
}

func clampMoisture(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
