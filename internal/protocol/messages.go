package protocol

// Metrics is the compact per-tick scorecard derived from the full
// state map.
type Metrics struct {
	SoilMoisture float64 `json:"soil_moisture"`
	SoilN        float64 `json:"soil_n"`
	YieldRate    float64 `json:"yield_rate"`
}

// WeatherPayload carries the driving weather for the reported day:
// a human-readable summary, the raw record as JSON, and coarse
// forecast tags.
type WeatherPayload struct {
	CurrentSummary string   `json:"current_summary,omitempty"`
	CurrentJSON    string   `json:"current_json,omitempty"`
	Forecast       []string `json:"forecast"`
}

type Location struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Elev float64 `json:"elev"`
}

// InitResult acknowledges a fresh session.
type InitResult struct {
	Message           string   `json:"message"`
	Crop              string   `json:"crop"`
	Variety           string   `json:"variety,omitempty"`
	SowingDate        string   `json:"sowing_date"`
	FertilizerApplied float64  `json:"fertilizer_applied"`
	IrrigationApplied float64  `json:"irrigation_applied"`
	Location          Location `json:"location"`
}

// TickResult reports the simulation after advancing one or more days.
// Tick counts all days executed in the session; Steps counts only the
// days executed by this request.
type TickResult struct {
	Tick     int            `json:"tick"`
	Steps    int            `json:"steps"`
	Day      string         `json:"day"`
	State    map[string]any `json:"state"`
	Metrics  Metrics        `json:"metrics"`
	Finished bool           `json:"finished"`
	Weather  WeatherPayload `json:"weather"`
}

// ActionResult is a TickResult annotated with the action that was
// scheduled (water or fertilize) and its resolved parameters.
type ActionResult struct {
	TickResult
	Action      string   `json:"action"`
	Message     string   `json:"message"`
	AmountCm    *float64 `json:"amount_cm,omitempty"`
	Efficiency  *float64 `json:"efficiency,omitempty"`
	AmountKgHa  *float64 `json:"amount_kg_ha,omitempty"`
	NH4Fraction *float64 `json:"nh4_fraction,omitempty"`
}

// StatusResult reports the session without advancing it. Only
// Initialized is guaranteed; the rest is present once a crop has been
// planted.
type StatusResult struct {
	Initialized bool            `json:"initialized"`
	Tick        *int            `json:"tick,omitempty"`
	State       map[string]any  `json:"state,omitempty"`
	Metrics     *Metrics        `json:"metrics,omitempty"`
	Weather     *WeatherPayload `json:"weather,omitempty"`
}

// SimulateResult is the outcome of a complete season run in one
// request, on a throwaway game that leaves the session untouched.
type SimulateResult struct {
	Crop              string         `json:"crop"`
	SowingDate        string         `json:"sowing_date"`
	DaysSimulated     int            `json:"days_simulated"`
	FinalDay          string         `json:"final_day"`
	FertilizerApplied float64        `json:"fertilizer_applied"`
	IrrigationApplied float64        `json:"irrigation_applied"`
	FinalState        map[string]any `json:"final_state"`
}
