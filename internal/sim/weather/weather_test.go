package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSynthesize_Deterministic(t *testing.T) {
	d := day(2024, 5, 1)
	a := Synthesize(49.104, -122.66, d)
	b := Synthesize(49.104, -122.66, d)
	if a != b {
		t.Fatalf("synthesis not bit-identical:\n%+v\n%+v", a, b)
	}
	c := Synthesize(49.104, -122.66, day(2024, 5, 2))
	if a == c {
		t.Fatalf("different days produced identical records")
	}
	e := Synthesize(49.105, -122.66, d)
	if a == e {
		t.Fatalf("different coordinates produced identical records")
	}
}

func TestSynthesize_NonNegativeTerms(t *testing.T) {
	for doy := 0; doy < 365; doy += 7 {
		d := day(2024, 1, 1).AddDate(0, 0, doy)
		r := Synthesize(-35.0, 149.0, d)
		if r.Rain < 0 || r.Vap < 0 || r.Wind < 0 || r.E0 < 0 || r.ES0 < 0 || r.ET0 < 0 {
			t.Fatalf("negative term on %s: %+v", d.Format("2006-01-02"), r)
		}
		if r.Irrad < 6_000_000.0 {
			t.Fatalf("irradiance below floor on %s: %v", d.Format("2006-01-02"), r.Irrad)
		}
	}
}

func TestMerge_DefaultsAndConsistency(t *testing.T) {
	d := day(2024, 5, 1)

	r := merge(d, partial{})
	if r.Temp != defaultTemp || r.E0 != defaultE0 || r.ES0 != defaultES0 || r.ET0 != defaultET0 {
		t.Fatalf("empty partial did not merge defaults: %+v", r)
	}

	tmin, tmax := 4.0, 14.0
	r = merge(d, partial{TMin: &tmin, TMax: &tmax})
	if r.Temp != 9.0 {
		t.Fatalf("TEMP not derived from TMIN/TMAX: got %v", r.Temp)
	}

	et0 := 0.33
	r = merge(d, partial{ET0: &et0})
	if r.E0 != et0 || r.ES0 != et0 || r.ET0 != et0 {
		t.Fatalf("single evap term not copied: %+v", r)
	}
}

func TestOracle_FallsBackToSynthesis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewPowerClient(2 * time.Second)
	client.BaseURL = srv.URL
	o := NewOracle(client, nil)

	d := day(2024, 6, 15)
	got := o.Fetch(context.Background(), 49.104, -122.66, d)
	want := o.Fetch(context.Background(), 49.104, -122.66, d)
	if got != want {
		t.Fatalf("fallback records differ:\n%+v\n%+v", got, want)
	}
	if got.Temp == 0 || got.E0 == 0 {
		t.Fatalf("fallback record missing derived fields: %+v", got)
	}
}

func TestPowerClient_MapsUnitsAndSnow(t *testing.T) {
	const dayKey = "20240115"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"properties":{"parameter":{
			"ALLSKY_SFC_SW_DWN":{"%[1]s":2.5},
			"T2M_MAX":{"%[1]s":-1.0},
			"T2M_MIN":{"%[1]s":-8.0},
			"PRECTOTCORR":{"%[1]s":12.0},
			"QV2M":{"%[1]s":3.0},
			"PS":{"%[1]s":100.0},
			"WS2M":{"%[1]s":4.5},
			"ET0":{"%[1]s":1.1}
		}}}`, dayKey)
	}))
	defer srv.Close()

	client := NewPowerClient(2 * time.Second)
	client.BaseURL = srv.URL
	o := NewOracle(client, nil)

	r := o.Fetch(context.Background(), 49.0, -122.0, day(2024, 1, 15))
	if r.Irrad != 2.5*3_600_000.0 {
		t.Fatalf("irradiance not converted: %v", r.Irrad)
	}
	if r.Temp != -4.5 {
		t.Fatalf("mean temperature: got %v want -4.5", r.Temp)
	}
	// TMAX <= 0: all precipitation reclassified as snow.
	if r.Rain != 0 || r.Snow != 1.2 {
		t.Fatalf("snow reclassification: rain=%v snow=%v", r.Rain, r.Snow)
	}
	if r.E0 != 0.11 || r.ES0 != 0.11 || r.ET0 != 0.11 {
		t.Fatalf("evap terms: %+v", r)
	}
	if r.Wind != 4.5 {
		t.Fatalf("wind passthrough: %v", r.Wind)
	}
	if r.Vap <= 0 {
		t.Fatalf("vapor pressure not derived: %v", r.Vap)
	}
}

func TestCache_EnsureFetchesOncePerDay(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewPowerClient(2 * time.Second)
	client.BaseURL = srv.URL
	o := NewOracle(client, nil)

	sow := day(2024, 5, 1)
	seed := o.Fetch(context.Background(), 49.0, -122.0, sow.AddDate(0, 0, -1))
	c := NewCache(o, 49.0, -122.0, seed)
	if c.Len() != 1 {
		t.Fatalf("seed not stored: len=%d", c.Len())
	}

	hits = 0
	for i := 0; i < 3; i++ {
		c.Ensure(context.Background(), sow)
	}
	if hits != 1 {
		t.Fatalf("ensure fetched %d times, want 1", hits)
	}

	got := c.Resolve(context.Background(), sow)
	again := c.Resolve(context.Background(), sow)
	if got != again {
		t.Fatalf("resolve returned differing records")
	}
	if hits != 1 {
		t.Fatalf("resolve refetched: hits=%d", hits)
	}

	if _, ok := c.Stored(sow.AddDate(0, 0, 5)); ok {
		t.Fatalf("stored reported a day that was never ensured")
	}
}

func TestForecast_PriorityTags(t *testing.T) {
	r := Record{Snow: 1.0, Rain: 0.5, TMax: 25.0, Wind: 6.0, Vap: 20.0}
	got := r.Forecast()
	want := []string{"snowy", "rainy", "sunny", "windy", "humid"}
	if len(got) != len(want) {
		t.Fatalf("tags: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tag order: got %v want %v", got, want)
		}
	}
	tags := (Record{}).Forecast()
	if len(tags) != 0 {
		t.Fatalf("quiet record produced tags: %v", tags)
	}
	b, err := json.Marshal(tags)
	if err != nil {
		t.Fatalf("marshal tags: %v", err)
	}
	if string(b) != "[]" {
		t.Fatalf("quiet forecast serialized as %s, want []", b)
	}
}
