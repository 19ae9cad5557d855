package soil

import "math"

// SiteParameters are the per-planting initial conditions and rate
// constants derived from a profile plus a location. Built once at
// planting time.
type SiteParameters struct {
	Lat, Lon, Elev float64

	IFUNRN float64
	NotInf float64
	SSI    float64
	SSMax  float64
	// WAV is the initial available water storage, from field capacity
	// over the rootable depth.
	WAV   float64
	SMLim float64
	CO2   float64

	A0SOM      float64
	CNRatioBio float64
	FasDis     float64
	KDenitRef  float64
	KNitRef    float64
	KSorp      float64
	MRCDis     float64
	NH4ConcR   float64
	NO3ConcR   float64
	WFPSCrit   float64

	// Initial per-layer concentrations, monotonically decreasing with
	// depth and floor-clamped.
	NH4Initial []float64
	NO3Initial []float64
}

// SiteFor derives site parameters from the profile and location.
func SiteFor(lat, lon, elev float64, p Profile) SiteParameters {
	n := len(p.Layers)
	nh4 := make([]float64, n)
	no3 := make([]float64, n)
	for i := 0; i < n; i++ {
		nh4[i] = math.Max(0.2, 2.0-float64(i)*0.3)
		no3[i] = math.Max(0.5, 5.0-float64(i)*0.7)
	}
	return SiteParameters{
		Lat:        lat,
		Lon:        lon,
		Elev:       elev,
		IFUNRN:     0,
		NotInf:     0.0,
		SSI:        0.0,
		SSMax:      0.0,
		WAV:        p.FieldCapacity * p.RootableDepth / 10.0,
		SMLim:      p.FieldCapacity,
		CO2:        420.0,
		A0SOM:      24.0,
		CNRatioBio: 9.0,
		FasDis:     0.5,
		KDenitRef:  0.06,
		KNitRef:    1.0,
		KSorp:      0.0005,
		MRCDis:     0.001,
		NH4ConcR:   0.0,
		NO3ConcR:   0.0,
		WFPSCrit:   0.8,
		NH4Initial: nh4,
		NO3Initial: no3,
	}
}
