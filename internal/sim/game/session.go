package game

import (
	"context"
	"errors"
	"time"

	"cropcraft.ai/internal/sim/crops"
	"cropcraft.ai/internal/sim/soil"
	"cropcraft.ai/internal/sim/weather"
)

// ErrNotPlanted is returned for any operation that needs a planted
// crop before Plant has succeeded.
var ErrNotPlanted = errors.New("plant a crop before this operation")

const defaultMaxDurationDays = 365

// Config wires one CropGame. Catalog, Oracle and NewEngine are shared
// read-only dependencies; everything stateful is owned per game.
type Config struct {
	Lat, Lon, Elev float64

	Catalog   *crops.Catalog
	Oracle    *weather.Oracle
	NewEngine EngineFactory

	// MaxDurationDays caps the crop calendar; 0 means the 365-day
	// ceiling.
	MaxDurationDays int
}

// CropGame owns one engine instance, its weather cache and its action
// scheduler, and advances the engine by exactly one simulated day per
// Tick. Exclusively owned by one connection worker; no locking.
type CropGame struct {
	lat, lon, elev float64
	catalog        *crops.Catalog
	oracle         *weather.Oracle
	newEngine      EngineFactory
	maxDuration    int

	engine  Engine
	wcache  *weather.Cache
	sched   Scheduler
	crop    string
	variety string

	currentDay time.Time
	lastDay    time.Time // zero until the first tick completes
}

func New(cfg Config) *CropGame {
	maxDur := cfg.MaxDurationDays
	if maxDur <= 0 {
		maxDur = defaultMaxDurationDays
	}
	return &CropGame{
		lat:         cfg.Lat,
		lon:         cfg.Lon,
		elev:        cfg.Elev,
		catalog:     cfg.Catalog,
		oracle:      cfg.Oracle,
		newEngine:   cfg.NewEngine,
		maxDuration: maxDur,
	}
}

// Plant resolves the crop and variety, builds fresh soil and site
// parameters, seeds the weather cache with the day before sowing and
// constructs the engine. Any previously queued actions are cleared.
func (g *CropGame) Plant(ctx context.Context, cropName string, sowing time.Time, varietyName string) error {
	cropKey, varKey, params, err := g.catalog.Resolve(cropName, varietyName)
	if err != nil {
		return err
	}

	profile := soil.DefaultProfile()
	site := soil.SiteFor(g.lat, g.lon, g.elev, profile)

	seedDay := sowing.AddDate(0, 0, -1)
	seed := g.oracle.Fetch(ctx, g.lat, g.lon, seedDay)
	g.wcache = weather.NewCache(g.oracle, g.lat, g.lon, seed)

	g.engine = g.newEngine(Setup{
		Crop:            cropKey,
		Variety:         varKey,
		Params:          params,
		Sowing:          sowing,
		MaxDurationDays: g.maxDuration,
		Profile:         profile,
		Site:            site,
	})
	g.crop = cropKey
	g.variety = varKey
	g.currentDay = sowing
	g.lastDay = time.Time{}
	g.sched.Clear()
	return nil
}

func (g *CropGame) Planted() bool { return g.engine != nil }

// Water schedules an irrigation event. A nil when defaults to the
// current day; efficiency is clamped to [0,1].
func (g *CropGame) Water(amountCm float64, when *time.Time, efficiency float64) error {
	if !g.Planted() {
		return ErrNotPlanted
	}
	return g.sched.Schedule(Action{
		Kind:       ActionIrrigate,
		AmountCm:   amountCm,
		Efficiency: clamp01(efficiency),
	}, g.targetDay(when), g.currentDay)
}

// Fertilize schedules a nitrogen application. nh4Fraction is clamped
// to [0,1]; the nitrate fraction is its complement.
func (g *CropGame) Fertilize(amountKgHa float64, when *time.Time, nh4Fraction float64) error {
	if !g.Planted() {
		return ErrNotPlanted
	}
	nh4 := clamp01(nh4Fraction)
	return g.sched.Schedule(Action{
		Kind:        ActionFertilize,
		AmountKgHa:  amountKgHa,
		NH4Fraction: nh4,
		NO3Fraction: 1.0 - nh4,
	}, g.targetDay(when), g.currentDay)
}

// Kill schedules a crop-termination event.
func (g *CropGame) Kill(when *time.Time, reason string, remove bool) error {
	if !g.Planted() {
		return ErrNotPlanted
	}
	if reason == "" {
		reason = "killed"
	}
	return g.sched.Schedule(Action{
		Kind:   ActionTerminate,
		Reason: reason,
		Remove: remove,
	}, g.targetDay(when), g.currentDay)
}

func (g *CropGame) targetDay(when *time.Time) time.Time {
	if when != nil {
		return *when
	}
	return g.currentDay
}

// Tick advances the engine by exactly one simulated day and returns
// the processed day plus the post-tick snapshot.
//
// The ordering is load-bearing: weather for the day is resolved
// before driving variables are used, and due actions are applied
// after the calendar step but before rates, so an injected event
// affects that day's rate calculation and no earlier day.
func (g *CropGame) Tick(ctx context.Context) (time.Time, Snapshot, error) {
	if !g.Planted() {
		return time.Time{}, nil, ErrNotPlanted
	}
	e := g.engine

	day, delta := e.Timer()
	e.Integrate(day, delta)

	drv := g.wcache.Resolve(ctx, day)
	e.AgroManagement(day, drv)

	for _, a := range g.sched.Drain(day) {
		Apply(e, a)
	}

	e.CalcRates(day, drv)
	if e.Terminated() {
		e.Terminate(day)
	}

	g.lastDay = day
	g.currentDay = day.AddDate(0, 0, 1)
	return day, g.State(), nil
}

// Finished reports whether the engine has flagged termination.
func (g *CropGame) Finished() bool {
	return g.engine != nil && g.engine.Terminated()
}

func (g *CropGame) CurrentDay() time.Time { return g.currentDay }

// LastDay is the most recently completed simulation day; ok is false
// before the first tick.
func (g *CropGame) LastDay() (time.Time, bool) {
	return g.lastDay, !g.lastDay.IsZero()
}

func (g *CropGame) Crop() string    { return g.crop }
func (g *CropGame) Variety() string { return g.variety }

func (g *CropGame) Location() (lat, lon, elev float64) {
	return g.lat, g.lon, g.elev
}

// WeatherFor resolves the record for day through the session's cache
// (falling back to a direct oracle fetch before planting).
func (g *CropGame) WeatherFor(ctx context.Context, day time.Time) weather.Record {
	if g.wcache != nil {
		return g.wcache.Resolve(ctx, day)
	}
	return g.oracle.Fetch(ctx, g.lat, g.lon, day)
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

// Snapshot is the normalized state mapping taken after each tick.
type Snapshot map[string]any

// snapshotVariables are read from the engine after every tick, in
// order. A per-variable read error drops just that field.
var snapshotVariables = []string{"DVS", "LAI", "SM", "TAGP", "TWSO", "TRA", "EVS"}

// soilNVariables are tried in order for a best-effort aggregate
// soil-nitrogen figure.
var soilNVariables = []string{"NMIN", "NSOIL", "SMN", "NPOOL", "ANLV", "NO3", "NH4"}

// State extracts and normalizes the current snapshot without
// advancing time. Idempotent and side-effect-free.
func (g *CropGame) State() Snapshot {
	if !g.Planted() {
		return Snapshot{}
	}
	state := Snapshot{}
	for _, name := range snapshotVariables {
		raw, err := g.engine.Variable(name)
		if err != nil || raw == nil {
			continue
		}
		norm := Normalize(raw)
		state[name] = norm
		if name == "SM" {
			if profile := FloatSeq(norm); len(profile) > 0 {
				var sum float64
				for _, v := range profile {
					sum += v
				}
				state["SM"] = sum / float64(len(profile))
				state["SM_profile"] = profile
			}
		}
	}

	for _, name := range soilNVariables {
		raw, err := g.engine.Variable(name)
		if err != nil || raw == nil {
			continue
		}
		if v, ok := ScalarFloat(Normalize(raw)); ok {
			state["soil_n"] = v
		}
		break
	}

	if tagp, ok := state["TAGP"]; ok {
		if v, isFloat := tagp.(float64); isFloat {
			state["biomass"] = v
		}
	}
	yieldCandidate := firstPresent(state, "TWSO", "TAGP", "biomass")
	if v, ok := ScalarFloat(yieldCandidate); ok {
		state["yield_rate"] = v
	}
	return state
}

func firstPresent(s Snapshot, names ...string) any {
	for _, n := range names {
		if v, ok := s[n]; ok {
			if f, isFloat := v.(float64); !isFloat || f != 0 {
				return v
			}
		}
	}
	return nil
}
