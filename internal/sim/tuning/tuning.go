package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning carries the gameplay and simulation knobs. Process-level
// settings (listen addresses, data dirs) stay on flags in cmd/server.
type Tuning struct {
	BaseYear int `yaml:"base_year"`

	SimDays             int `yaml:"sim_days"`
	MaxCropDurationDays int `yaml:"max_crop_duration_days"`

	WeatherTimeoutSeconds int  `yaml:"weather_timeout_seconds"`
	RemoteWeather         bool `yaml:"remote_weather"`

	TranscriptRotateMinutes int `yaml:"transcript_rotate_minutes"`

	DefaultLat  float64 `yaml:"default_lat"`
	DefaultLon  float64 `yaml:"default_lon"`
	DefaultElev float64 `yaml:"default_elev"`

	DefaultIrrigationEfficiency float64 `yaml:"default_irrigation_efficiency"`
	DefaultNH4Fraction          float64 `yaml:"default_nh4_fraction"`

	FertilizerPresets map[string]float64 `yaml:"fertilizer_presets"`
	IrrigationPresets map[string]float64 `yaml:"irrigation_presets"`
}

func Defaults() Tuning {
	return Tuning{
		BaseYear:                    2024,
		SimDays:                     120,
		MaxCropDurationDays:         365,
		WeatherTimeoutSeconds:       12,
		RemoteWeather:               true,
		TranscriptRotateMinutes:     60,
		DefaultLat:                  49.104,
		DefaultLon:                  -122.66,
		DefaultElev:                 36.0,
		DefaultIrrigationEfficiency: 0.75,
		DefaultNH4Fraction:          0.7,
		FertilizerPresets: map[string]float64{
			"none":   0.0,
			"low":    20.0,
			"medium": 40.0,
			"high":   80.0,
		},
		IrrigationPresets: map[string]float64{
			"none":      0.0,
			"drip":      1.5,
			"sprinkler": 2.5,
			"flood":     3.5,
		},
	}
}

// Load reads path over the defaults, so a sparse file keeps its
// unlisted knobs.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
