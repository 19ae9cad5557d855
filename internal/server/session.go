// Package server holds the per-connection session state machine: it
// decodes request records, drives the crop game, and shapes responses.
// A Session is owned by exactly one connection worker.
package server

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"cropcraft.ai/internal/protocol"
	"cropcraft.ai/internal/sim/crops"
	"cropcraft.ai/internal/sim/game"
	"cropcraft.ai/internal/sim/tuning"
	"cropcraft.ai/internal/sim/weather"
)

// Journal observes the request/response stream for persistence.
// Implementations must tolerate being called from many connection
// goroutines.
type Journal interface {
	SessionStarted(sessionID, remote string)
	Exchange(sessionID, action string, request []byte, response protocol.Response)
	SessionEnded(sessionID string)
}

// Deps is everything a Session needs from the process.
type Deps struct {
	Catalog   *crops.Catalog
	Oracle    *weather.Oracle
	NewEngine game.EngineFactory
	Tuning    tuning.Tuning
	Logger    *log.Logger
	Journal   Journal // optional
}

// Session is one client's game state plus the init-payload memory
// that lets a later bare init reuse the previous date and crop.
type Session struct {
	ID     string
	deps   Deps
	logger *log.Logger

	game   *game.CropGame
	ticks  int
	memory protocol.Request // last successful init payload
	sowing string
	crop   string
}

func NewSession(deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[session] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Session{ID: uuid.NewString(), deps: deps, logger: logger}
}

// Handle processes one request line and always produces a response;
// handler errors become {ok:false} records, never connection faults.
func (s *Session) Handle(ctx context.Context, raw []byte) protocol.Response {
	resp, action := s.dispatch(ctx, raw)
	if s.deps.Journal != nil {
		s.deps.Journal.Exchange(s.ID, action, raw, resp)
	}
	return resp
}

func (s *Session) dispatch(ctx context.Context, raw []byte) (protocol.Response, string) {
	req, err := protocol.Parse(raw)
	if err != nil {
		return protocol.Failure(protocol.ErrBadRequest, err.Error()), ""
	}
	if strings.TrimSpace(req.Action) == "" {
		return protocol.Failure(protocol.ErrBadRequest, "missing 'action' field in request"), ""
	}
	action, ok := protocol.Canonical(req.Action)
	if !ok {
		return protocol.Failure(protocol.ErrBadRequest, "unsupported action: "+req.Action), req.Action
	}

	var result any
	switch action {
	case protocol.ActionInit:
		result, err = s.handleInit(ctx, req)
	case protocol.ActionTick:
		steps := 1
		if req.Steps != nil {
			steps = *req.Steps
		}
		result, err = s.handleTick(ctx, steps)
	case protocol.ActionStatus:
		result, err = s.handleStatus(ctx)
	case protocol.ActionWater:
		result, err = s.handleWater(ctx, req)
	case protocol.ActionFertilize:
		result, err = s.handleFertilize(ctx, req)
	case protocol.ActionSimulate:
		result, err = s.handleSimulate(ctx, req)
	}
	if err != nil {
		s.logger.Printf("session %s: %s failed: %v", s.ID, action, err)
		return protocol.Failure(classify(err), err.Error()), action
	}
	return protocol.Success(result), action
}

type initParams struct {
	sowing     time.Time
	crop       string
	variety    string
	fertilizer float64
	irrigation float64
	efficiency float64
	lat        float64
	lon        float64
	elev       float64
}

// initFrom validates and defaults an init/simulate payload. withMemory
// lets init fall back to the previous session's date and crop;
// simulate has no memory.
func (s *Session) initFrom(req protocol.Request, withMemory bool) (initParams, error) {
	tun := s.deps.Tuning

	dateValue := req.Date
	if withMemory && isEmptyField(dateValue) {
		dateValue = s.memory.Date
		if isEmptyField(dateValue) {
			dateValue = s.sowing
		}
	}
	if isEmptyField(dateValue) {
		return initParams{}, badRequest("missing sowing date in init payload")
	}
	sowing, err := parseGameDate(dateValue, tun.BaseYear)
	if err != nil {
		return initParams{}, badRequest("%v", err)
	}

	crop := strings.TrimSpace(req.Crop)
	if crop == "" && withMemory {
		crop = strings.TrimSpace(s.memory.Crop)
	}
	if crop == "" {
		crop = "wheat"
	}

	fertilizer, err := resolveAmount(req.Fertilizer, tun.FertilizerPresets, "fertilizer")
	if err != nil {
		return initParams{}, badRequest("%v", err)
	}
	irrigation, err := resolveAmount(req.Irrigation, tun.IrrigationPresets, "irrigation")
	if err != nil {
		return initParams{}, badRequest("%v", err)
	}

	efficiency := tun.DefaultIrrigationEfficiency
	if req.IrrigationEfficiency != nil {
		efficiency = clamp01(*req.IrrigationEfficiency)
	}

	p := initParams{
		sowing:     sowing,
		crop:       crop,
		variety:    strings.TrimSpace(req.Variety),
		fertilizer: fertilizer,
		irrigation: irrigation,
		efficiency: efficiency,
		lat:        tun.DefaultLat,
		lon:        tun.DefaultLon,
		elev:       tun.DefaultElev,
	}
	if req.Lat != nil {
		p.lat = *req.Lat
	}
	if req.Lon != nil {
		p.lon = *req.Lon
	}
	if req.Elev != nil {
		p.elev = *req.Elev
	}
	return p, nil
}

func (s *Session) newGame(ctx context.Context, p initParams) (*game.CropGame, error) {
	g := game.New(game.Config{
		Lat:             p.lat,
		Lon:             p.lon,
		Elev:            p.elev,
		Catalog:         s.deps.Catalog,
		Oracle:          s.deps.Oracle,
		NewEngine:       s.deps.NewEngine,
		MaxDurationDays: s.deps.Tuning.MaxCropDurationDays,
	})
	if err := g.Plant(ctx, p.crop, p.sowing, p.variety); err != nil {
		return nil, lookupFailed(err)
	}
	if p.irrigation > 0 {
		if err := g.Water(p.irrigation, nil, p.efficiency); err != nil {
			return nil, err
		}
	}
	if p.fertilizer > 0 {
		if err := g.Fertilize(p.fertilizer, nil, s.deps.Tuning.DefaultNH4Fraction); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (s *Session) handleInit(ctx context.Context, req protocol.Request) (any, error) {
	p, err := s.initFrom(req, true)
	if err != nil {
		return nil, err
	}
	g, err := s.newGame(ctx, p)
	if err != nil {
		return nil, err
	}

	s.game = g
	s.ticks = 0
	memory := req
	memory.Date = p.sowing.Format(dateLayout)
	memory.Crop = g.Crop()
	s.memory = memory
	s.sowing = p.sowing.Format(dateLayout)
	s.crop = g.Crop()

	return protocol.InitResult{
		Message:           "initialized",
		Crop:              g.Crop(),
		Variety:           g.Variety(),
		SowingDate:        s.sowing,
		FertilizerApplied: p.fertilizer,
		IrrigationApplied: p.irrigation,
		Location:          protocol.Location{Lat: p.lat, Lon: p.lon, Elev: p.elev},
	}, nil
}

func (s *Session) handleTick(ctx context.Context, steps int) (protocol.TickResult, error) {
	g := s.game
	if g == nil {
		return protocol.TickResult{}, precondition("initialize the simulation before requesting ticks")
	}
	if steps < 1 {
		steps = 1
	}

	var (
		lastDay   time.Time
		lastState game.Snapshot
		executed  int
		finished  bool
	)
	for i := 0; i < steps; i++ {
		day, state, err := g.Tick(ctx)
		if err != nil {
			return protocol.TickResult{}, err
		}
		executed++
		s.ticks++
		lastDay = day
		lastState = state
		finished = g.Finished()
		if finished {
			break
		}
	}

	return protocol.TickResult{
		Tick:     s.ticks,
		Steps:    executed,
		Day:      lastDay.Format(dateLayout),
		State:    lastState,
		Metrics:  buildMetrics(lastState),
		Finished: finished,
		Weather:  buildWeather(ctx, g, lastDay),
	}, nil
}

func (s *Session) handleStatus(ctx context.Context) (any, error) {
	g := s.game
	if g == nil {
		return protocol.StatusResult{Initialized: false}, nil
	}
	state := g.State()
	metrics := buildMetrics(state)
	conditions := buildWeather(ctx, g, reportDay(g))
	ticks := s.ticks
	return protocol.StatusResult{
		Initialized: true,
		Tick:        &ticks,
		State:       state,
		Metrics:     &metrics,
		Weather:     &conditions,
	}, nil
}

func (s *Session) handleWater(ctx context.Context, req protocol.Request) (any, error) {
	g := s.game
	if g == nil {
		return nil, precondition("initialize the simulation before sending actions")
	}
	if req.AmountCm == nil {
		return nil, badRequest("water action requires 'amount_cm' in centimetres")
	}
	amount := *req.AmountCm

	efficiency := s.deps.Tuning.DefaultIrrigationEfficiency
	if req.Efficiency != nil {
		efficiency = *req.Efficiency
	}
	efficiency = clamp01(efficiency)

	if err := g.Water(amount, s.explicitDay(g, req), efficiency); err != nil {
		return nil, err
	}

	base, err := s.afterAction(ctx, g, req)
	if err != nil {
		return nil, err
	}
	result := protocol.ActionResult{
		TickResult: base,
		Action:     "water",
		AmountCm:   &amount,
		Efficiency: &efficiency,
	}
	if base.Steps > 0 {
		result.Message = "water applied"
	} else {
		result.Message = "water scheduled"
	}
	return result, nil
}

func (s *Session) handleFertilize(ctx context.Context, req protocol.Request) (any, error) {
	g := s.game
	if g == nil {
		return nil, precondition("initialize the simulation before sending actions")
	}
	if req.AmountKgHa == nil {
		return nil, badRequest("fertilize action requires 'amount_kg_ha' in kilograms per hectare")
	}
	amount := *req.AmountKgHa

	nh4 := s.deps.Tuning.DefaultNH4Fraction
	if req.NH4Fraction != nil {
		nh4 = *req.NH4Fraction
	}
	nh4 = clamp01(nh4)

	if err := g.Fertilize(amount, s.explicitDay(g, req), nh4); err != nil {
		return nil, err
	}

	base, err := s.afterAction(ctx, g, req)
	if err != nil {
		return nil, err
	}
	result := protocol.ActionResult{
		TickResult:  base,
		Action:      "fertilize",
		AmountKgHa:  &amount,
		NH4Fraction: &nh4,
	}
	if base.Steps > 0 {
		result.Message = "fertilizer applied"
	} else {
		result.Message = "fertilizer scheduled"
	}
	return result, nil
}

// afterAction advances auto_steps ticks (default 1); zero means
// schedule-only, which reports the current snapshot without moving
// the clock.
func (s *Session) afterAction(ctx context.Context, g *game.CropGame, req protocol.Request) (protocol.TickResult, error) {
	autoSteps := 1
	if req.AutoSteps != nil {
		autoSteps = *req.AutoSteps
	}
	if autoSteps < 0 {
		autoSteps = 0
	}
	if autoSteps > 0 {
		return s.handleTick(ctx, autoSteps)
	}

	state := g.State()
	day := reportDay(g)
	return protocol.TickResult{
		Tick:     s.ticks,
		Steps:    0,
		Day:      day.Format(dateLayout),
		State:    state,
		Metrics:  buildMetrics(state),
		Finished: g.Finished(),
		Weather:  buildWeather(ctx, g, day),
	}, nil
}

func (s *Session) handleSimulate(ctx context.Context, req protocol.Request) (any, error) {
	p, err := s.initFrom(req, false)
	if err != nil {
		return nil, err
	}
	g, err := s.newGame(ctx, p)
	if err != nil {
		return nil, err
	}

	days := s.deps.Tuning.SimDays
	if days < 1 {
		days = 1
	}
	finalDay := p.sowing
	var finalState game.Snapshot
	simulated := 0
	for i := 0; i < days; i++ {
		day, state, err := g.Tick(ctx)
		if err != nil {
			return nil, err
		}
		simulated++
		finalDay = day
		finalState = state
		if g.Finished() {
			break
		}
	}

	return protocol.SimulateResult{
		Crop:              g.Crop(),
		SowingDate:        p.sowing.Format(dateLayout),
		DaysSimulated:     simulated,
		FinalDay:          finalDay.Format(dateLayout),
		FertilizerApplied: p.fertilizer,
		IrrigationApplied: p.irrigation,
		FinalState:        finalState,
	}, nil
}

// explicitDay reads date/day/when. An unparseable value falls back to
// "now"; an explicit past day is clamped forward to the current day.
func (s *Session) explicitDay(g *game.CropGame, req protocol.Request) *time.Time {
	value := req.Date
	if isEmptyField(value) {
		value = req.Day
	}
	if isEmptyField(value) {
		value = req.When
	}
	if isEmptyField(value) {
		return nil
	}
	parsed, err := parseGameDate(value, s.deps.Tuning.BaseYear)
	if err != nil {
		return nil
	}
	if parsed.Before(g.CurrentDay()) {
		current := g.CurrentDay()
		return &current
	}
	return &parsed
}

// reportDay is the day a non-advancing response describes: the last
// completed tick, else the eve of the sowing day.
func reportDay(g *game.CropGame) time.Time {
	if last, ok := g.LastDay(); ok {
		return last
	}
	return g.CurrentDay().AddDate(0, 0, -1)
}

func buildMetrics(state game.Snapshot) protocol.Metrics {
	var m protocol.Metrics
	if v, ok := game.ScalarFloat(state["SM"]); ok {
		m.SoilMoisture = v
	}
	if v, ok := game.ScalarFloat(state["soil_n"]); ok {
		m.SoilN = v
	}
	for _, key := range []string{"yield_rate", "TWSO", "TAGP", "biomass"} {
		if v, ok := game.ScalarFloat(state[key]); ok && v != 0 {
			m.YieldRate = v
			break
		}
	}
	return m
}

func buildWeather(ctx context.Context, g *game.CropGame, day time.Time) protocol.WeatherPayload {
	record := g.WeatherFor(ctx, day)
	payload := protocol.WeatherPayload{
		CurrentSummary: record.Summary(),
		Forecast:       record.Forecast(),
	}
	if raw, err := json.Marshal(record); err == nil {
		payload.CurrentJSON = string(raw)
	}
	return payload
}
