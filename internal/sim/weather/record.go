package weather

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is one day of driving-variable inputs for the crop engine.
// Units follow the engine's conventions: IRRAD J/m2/day, temperatures
// in degrees C, RAIN/SNOW and the evaporation terms in cm/day, VAP in
// hPa, WIND in m/s.
type Record struct {
	Day   time.Time
	Irrad float64
	TMin  float64
	TMax  float64
	Temp  float64
	Rain  float64
	Snow  float64
	Vap   float64
	Wind  float64
	E0    float64
	ES0   float64
	ET0   float64
}

// Defaults applied to any field the source left absent.
const (
	defaultIrrad = 18_000_000.0
	defaultTMin  = 10.0
	defaultTMax  = 21.0
	defaultTemp  = 15.5
	defaultVap   = 12.0
	defaultRain  = 0.0
	defaultE0    = 0.42
	defaultES0   = 0.40
	defaultET0   = 0.41
	defaultWind  = 2.0
)

// partial is a source record before merging: nil means the source did
// not supply the field.
type partial struct {
	Irrad *float64
	TMin  *float64
	TMax  *float64
	Temp  *float64
	Rain  *float64
	Snow  *float64
	Vap   *float64
	Wind  *float64
	E0    *float64
	ES0   *float64
	ET0   *float64
}

// merge fills a complete Record from p, replacing absent fields with
// the documented defaults. TEMP is re-derived from TMIN/TMAX when both
// are present; the three evaporation terms are copied from whichever
// one is known so they end up mutually consistent.
func merge(day time.Time, p partial) Record {
	r := Record{
		Day:   day,
		Irrad: defaultIrrad,
		TMin:  defaultTMin,
		TMax:  defaultTMax,
		Temp:  defaultTemp,
		Rain:  defaultRain,
		Vap:   defaultVap,
		Wind:  defaultWind,
		E0:    defaultE0,
		ES0:   defaultES0,
		ET0:   defaultET0,
	}
	if p.Irrad != nil {
		r.Irrad = *p.Irrad
	}
	if p.TMin != nil {
		r.TMin = *p.TMin
	}
	if p.TMax != nil {
		r.TMax = *p.TMax
	}
	if p.Rain != nil {
		r.Rain = *p.Rain
	}
	if p.Snow != nil {
		r.Snow = *p.Snow
	}
	if p.Vap != nil {
		r.Vap = *p.Vap
	}
	if p.Wind != nil {
		r.Wind = *p.Wind
	}

	switch {
	case p.Temp != nil:
		r.Temp = *p.Temp
	case p.TMin != nil && p.TMax != nil:
		r.Temp = 0.5 * (*p.TMin + *p.TMax)
	}

	evap := firstSet(p.ET0, p.E0, p.ES0)
	if p.E0 != nil {
		r.E0 = *p.E0
	} else if evap != nil {
		r.E0 = *evap
	}
	if p.ES0 != nil {
		r.ES0 = *p.ES0
	} else if evap != nil {
		r.ES0 = *evap
	}
	if p.ET0 != nil {
		r.ET0 = *p.ET0
	} else if evap != nil {
		r.ET0 = *evap
	}
	return r
}

func firstSet(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

// recordJSON is the wire shape of a Record (engine variable names).
type recordJSON struct {
	Day   string  `json:"DAY"`
	Irrad float64 `json:"IRRAD"`
	TMin  float64 `json:"TMIN"`
	TMax  float64 `json:"TMAX"`
	Temp  float64 `json:"TEMP"`
	Rain  float64 `json:"RAIN"`
	Snow  float64 `json:"SNOW"`
	Vap   float64 `json:"VAP"`
	Wind  float64 `json:"WIND"`
	E0    float64 `json:"E0"`
	ES0   float64 `json:"ES0"`
	ET0   float64 `json:"ET0"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Day:   r.Day.Format("2006-01-02"),
		Irrad: r.Irrad,
		TMin:  r.TMin,
		TMax:  r.TMax,
		Temp:  r.Temp,
		Rain:  r.Rain,
		Snow:  r.Snow,
		Vap:   r.Vap,
		Wind:  r.Wind,
		E0:    r.E0,
		ES0:   r.ES0,
		ET0:   r.ET0,
	})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var w recordJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	day, err := time.Parse("2006-01-02", w.Day)
	if err != nil {
		return fmt.Errorf("weather record day: %w", err)
	}
	*r = Record{
		Day:   day,
		Irrad: w.Irrad,
		TMin:  w.TMin,
		TMax:  w.TMax,
		Temp:  w.Temp,
		Rain:  w.Rain,
		Snow:  w.Snow,
		Vap:   w.Vap,
		Wind:  w.Wind,
		E0:    w.E0,
		ES0:   w.ES0,
		ET0:   w.ET0,
	}
	return nil
}

// Summary renders the short human-readable line shown to clients.
func (r Record) Summary() string {
	parts := []string{
		"DAY=" + r.Day.Format("2006-01-02"),
		fmt.Sprintf("RAIN=%.2f", r.Rain),
		fmt.Sprintf("TMIN=%.2f", r.TMin),
		fmt.Sprintf("TMAX=%.2f", r.TMax),
		fmt.Sprintf("IRRAD=%.2f", r.Irrad),
		fmt.Sprintf("ET0=%.2f", r.ET0),
		fmt.Sprintf("E0=%.2f", r.E0),
		fmt.Sprintf("ES0=%.2f", r.ES0),
	}
	return strings.Join(parts, ", ")
}

// Condition thresholds for Forecast.
const (
	snowThreshCm   = 0.5
	rainThreshCm   = 0.1
	humidThreshHPa = 15.0
	windThreshMS   = 5.0
	warmThreshC    = 20.0
)

// Forecast classifies the record into player-facing condition tags,
// highest priority first. Always non-nil so a quiet day serializes as
// an empty array.
func (r Record) Forecast() []string {
	tags := []string{}
	if r.Snow >= snowThreshCm {
		tags = append(tags, "snowy")
	}
	if r.Rain >= rainThreshCm {
		tags = append(tags, "rainy")
	}
	if r.TMax >= warmThreshC {
		tags = append(tags, "sunny")
	}
	if r.Wind >= windThreshMS {
		tags = append(tags, "windy")
	}
	if r.Vap >= humidThreshHPa {
		tags = append(tags, "humid")
	}
	return tags
}
