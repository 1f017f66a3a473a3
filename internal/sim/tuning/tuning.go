package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the environment constants. Defaults mirror the original
// worker; a tuning.yaml can override them per deployment.
type Tuning struct {
	MaxSteps int `yaml:"max_steps"`

	Reward Reward `yaml:"reward"`

	DecimateRatio  float64 `yaml:"decimate_ratio"`
	MergeThreshold float64 `yaml:"merge_threshold"`
	UVAngleLimit   float64 `yaml:"uv_angle_limit"`
	UVIslandMargin float64 `yaml:"uv_island_margin"`
	LayoutSpacing  float64 `yaml:"layout_spacing"`
}

type Reward struct {
	TriWeight float64 `yaml:"tri_weight"`
	ObjWeight float64 `yaml:"obj_weight"`
	FreeObjs  int     `yaml:"free_objs"`
}

func Defaults() Tuning {
	return Tuning{
		MaxSteps: 50,
		Reward: Reward{
			TriWeight: -0.001,
			ObjWeight: -0.01,
			FreeObjs:  6,
		},
		DecimateRatio:  0.85,
		MergeThreshold: 0.0005,
		UVAngleLimit:   66.0,
		UVIslandMargin: 0.02,
		LayoutSpacing:  1.3,
	}
}

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
