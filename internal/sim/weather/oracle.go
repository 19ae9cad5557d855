package weather

import (
	"context"
	"log"
	"time"
)

// Oracle produces a daily weather record for a (lat, lon, day) triple.
// It tries the remote point API first and degrades to deterministic
// synthesis; it never fails the caller.
type Oracle struct {
	remote *PowerClient // nil: synthesis only
	logger *log.Logger
}

func NewOracle(remote *PowerClient, logger *log.Logger) *Oracle {
	return &Oracle{remote: remote, logger: logger}
}

// Fetch always returns a usable record: every field is populated after
// merging onto the defaults.
func (o *Oracle) Fetch(ctx context.Context, lat, lon float64, day time.Time) Record {
	if o.remote != nil {
		p, err := o.remote.fetch(ctx, lat, lon, day)
		if err == nil {
			return merge(day, p)
		}
		if o.logger != nil {
			o.logger.Printf("weather: remote fetch %s failed, using synthesis: %v", day.Format("2006-01-02"), err)
		}
	}
	syn := Synthesize(lat, lon, day)
	return merge(day, partial{
		Irrad: &syn.Irrad,
		TMin:  &syn.TMin,
		TMax:  &syn.TMax,
		Temp:  &syn.Temp,
		Rain:  &syn.Rain,
		Vap:   &syn.Vap,
		Wind:  &syn.Wind,
		E0:    &syn.E0,
		ES0:   &syn.ES0,
		ET0:   &syn.ET0,
	})
}
