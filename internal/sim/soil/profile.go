package soil

// Layer is one horizon of the soil profile. The pF sample slices are
// (pF, value) pairs flattened into a single sequence, matching the
// engine's moisture-retention and conductivity curve inputs.
type Layer struct {
	Thickness   float64   // cm
	SMFromPF    []float64 // moisture retention curve samples
	CondFromPF  []float64 // log10 conductivity curve samples
	CRAirC      float64
	CNRatioSOMI float64
	FSOMI       float64 // organic-matter fraction
	BulkDensity float64 // g/cm3
	PH          float64
}

// Profile is the fixed soil template: bulk hydraulic parameters plus
// the ordered layer stack. RootableDepth always equals the sum of the
// layer thicknesses.
type Profile struct {
	FieldCapacity       float64 // SMFCF, volumetric
	Saturation          float64 // SM0
	WiltingPoint        float64 // SMW
	CRAirC              float64
	RootableDepth       float64 // cm
	K0                  float64
	SOPE                float64
	KSub                float64
	CNSol               float64
	PFWiltingPoint      float64
	PFFieldCapacity     float64
	SurfaceConductivity float64
	Layers              []Layer
	SubSoil             Layer
}

var smFromPF = []float64{
	-1.0, 0.366,
	1.0, 0.338,
	1.3, 0.304,
	1.7, 0.233,
	2.0, 0.179,
	2.3, 0.135,
	2.4, 0.123,
	2.7, 0.094,
	3.0, 0.073,
	3.3, 0.059,
	3.7, 0.046,
	4.0, 0.039,
	4.17, 0.037,
	4.2, 0.036,
	6.0, 0.02,
}

var condFromPF = []float64{
	-1.0, 1.8451,
	1.0, 1.02119,
	1.3, 0.51055,
	1.7, -0.52288,
	2.0, -1.50864,
	2.3, -2.56864,
	2.4, -2.92082,
	2.7, -4.01773,
	3.0, -5.11919,
	3.3, -6.22185,
	3.7, -7.69897,
	4.0, -8.79588,
	4.17, -9.4318,
	4.2, -9.5376,
	6.0, -11.5376,
}

func makeLayer(thickness, fsomi float64) Layer {
	return Layer{
		Thickness:   thickness,
		SMFromPF:    append([]float64(nil), smFromPF...),
		CondFromPF:  append([]float64(nil), condFromPF...),
		CRAirC:      0.09,
		CNRatioSOMI: 9.0,
		FSOMI:       fsomi,
		BulkDensity: 1.406,
		PH:          7.4,
	}
}

// DefaultProfile returns a fresh deep copy of the soil template, so
// callers may mutate their copy without affecting the template.
func DefaultProfile() Profile {
	p := Profile{
		FieldCapacity:       0.179,
		Saturation:          0.366,
		WiltingPoint:        0.036,
		CRAirC:              0.09,
		K0:                  10.0,
		SOPE:                10.0,
		KSub:                10.0,
		CNSol:               45.0,
		PFWiltingPoint:      4.2,
		PFFieldCapacity:     2.0,
		SurfaceConductivity: 70.0,
		Layers: []Layer{
			makeLayer(10.0, 0.02),
			makeLayer(10.0, 0.02),
			makeLayer(10.0, 0.01),
			makeLayer(20.0, 0.00),
			makeLayer(30.0, 0.00),
			makeLayer(45.0, 0.00),
		},
		SubSoil: makeLayer(200.0, 0.00),
	}
	p.RootableDepth = p.TotalDepth()
	return p
}

// TotalDepth sums the layer thicknesses.
func (p Profile) TotalDepth() float64 {
	var total float64
	for _, l := range p.Layers {
		total += l.Thickness
	}
	return total
}
