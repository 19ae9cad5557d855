package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultPowerURL is the NASA POWER daily point-query endpoint.
const DefaultPowerURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

const powerParams = "ALLSKY_SFC_SW_DWN,T2M_MAX,T2M_MIN,PRECTOTCORR,QV2M,PS,WS2M,ET0"

// PowerClient queries the remote point API for one day of observed
// weather. Any failure (transport, timeout, unusable payload) returns
// an error; callers are expected to fall back to synthesis.
type PowerClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewPowerClient(timeout time.Duration) *PowerClient {
	return &PowerClient{
		BaseURL: DefaultPowerURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type powerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

func (c *PowerClient) fetch(ctx context.Context, lat, lon float64, day time.Time) (partial, error) {
	dayKey := day.Format("20060102")

	q := url.Values{}
	q.Set("parameters", powerParams)
	q.Set("community", "AG")
	q.Set("latitude", fmt.Sprintf("%v", lat))
	q.Set("longitude", fmt.Sprintf("%v", lon))
	q.Set("start", dayKey)
	q.Set("end", dayKey)
	q.Set("format", "JSON")
	q.Set("time-standard", "UTC")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return partial{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return partial{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return partial{}, fmt.Errorf("power: status %d", resp.StatusCode)
	}

	var body powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return partial{}, fmt.Errorf("power: decode: %w", err)
	}

	pick := func(name string) *float64 {
		series, ok := body.Properties.Parameter[name]
		if !ok {
			return nil
		}
		v, ok := series[dayKey]
		if !ok || v <= -900 { // POWER fill value
			return nil
		}
		return &v
	}

	irr := pick("ALLSKY_SFC_SW_DWN")
	tmax := pick("T2M_MAX")
	tmin := pick("T2M_MIN")
	rain := pick("PRECTOTCORR")
	qv2m := pick("QV2M")
	ps := pick("PS")
	wind := pick("WS2M")
	et0 := pick("ET0")

	if irr == nil && tmax == nil && rain == nil {
		return partial{}, fmt.Errorf("power: no usable signal for %s", dayKey)
	}

	var p partial
	if irr != nil {
		// kWh/m2/day -> J/m2/day
		v := *irr * 3_600_000.0
		p.Irrad = &v
	}
	p.TMax = tmax
	p.TMin = tmin
	if tmax != nil && tmin != nil {
		v := 0.5 * (*tmax + *tmin)
		p.Temp = &v
	}
	if rain != nil {
		// mm/day -> cm/day
		v := *rain / 10.0
		p.Rain = &v
	}
	p.Vap = vapFromSpecificHumidity(qv2m, ps)
	p.Wind = wind
	if et0 != nil {
		v := *et0 / 10.0
		p.E0 = &v
		p.ES0 = &v
		p.ET0 = &v
	}

	// Below freezing, all precipitation falls as snow.
	if p.Rain != nil && p.TMax != nil && *p.TMax <= 0.0 {
		snow := *p.Rain
		zero := 0.0
		p.Snow = &snow
		p.Rain = &zero
	}
	return p, nil
}

// vapFromSpecificHumidity derives vapor pressure (hPa) from specific
// humidity QV2M (g/kg) and surface pressure PS (kPa) via the ideal-gas
// mixing-ratio relation.
func vapFromSpecificHumidity(qv2m, ps *float64) *float64 {
	if qv2m == nil || ps == nil {
		return nil
	}
	q := *qv2m / 1000.0
	vapKPa := (q * *ps) / (0.622 + 0.378*q)
	v := vapKPa * 10.0
	return &v
}
