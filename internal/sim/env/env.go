// Package env is the environment state machine between the trainer protocol
// and the scene engine: episode lifecycle, action dispatch, observation
// construction, reward, and termination.
package env

import (
	"log"
	"time"

	"meshgym.ai/internal/protocol"
	"meshgym.ai/internal/sim/scene"
	"meshgym.ai/internal/sim/tuning"
)

// Defined actions. Anything else is a no-op that still advances the episode.
const (
	ActionDecimate  = 0
	ActionMerge     = 1
	ActionUVProject = 2
	ActionLayout    = 3
)

const obsMaxObjects = 5 // dims carries 3 extents for each

// Env owns the scene engine handle for the life of the process. Sessions are
// strictly sequential, so a single instance with no locking suffices; scene
// state persists across connections until the next reset.
type Env struct {
	eng   scene.Engine
	tune  tuning.Tuning
	asset string
	log   *log.Logger

	episode   int
	stepCount int
	diags     []DiagSink
}

func New(eng scene.Engine, tune tuning.Tuning, assetPath string, logger *log.Logger) *Env {
	return &Env{
		eng:   eng,
		tune:  tune,
		asset: assetPath,
		log:   logger,
	}
}

func (e *Env) AttachDiag(s DiagSink) { e.diags = append(e.diags, s) }

func (e *Env) StepCount() int { return e.stepCount }

// Reset rebuilds the deterministic baseline and starts a new episode. An
// asset that fails to import is logged and skipped; the baseline is then the
// empty scene, same as running with no asset at all.
func (e *Env) Reset() protocol.Observation {
	if err := e.eng.Reset(e.asset); err != nil {
		e.log.Printf("asset import: %v", err)
	}
	e.stepCount = 0
	e.episode++

	obs := e.Observe()
	for _, d := range e.diags {
		d.WriteEpisodeStart(EpisodeStart{
			Episode: e.episode,
			Asset:   e.asset,
			NObjs:   obs.NObjs,
			NTris:   obs.NTris,
			At:      time.Now().UTC(),
		})
	}
	return obs
}

// Step dispatches the action, advances the episode, and returns the new
// observation with its reward. Per-object mutation failures are skipped and
// never abort the step; they reach the diagnostic sinks only.
func (e *Env) Step(action int) (protocol.Observation, float64, bool, map[string]any) {
	outcomes := e.dispatch(action)

	e.stepCount++
	obs := e.Observe()
	reward := e.Reward(obs)
	done := e.stepCount >= e.tune.MaxSteps

	entry := StepLogEntry{
		Episode:  e.episode,
		Step:     e.stepCount,
		Action:   action,
		Reward:   reward,
		Done:     done,
		NObjs:    obs.NObjs,
		NTris:    obs.NTris,
		Outcomes: outcomes,
		At:       time.Now().UTC(),
	}
	for _, d := range e.diags {
		d.WriteStep(entry)
	}
	return obs, reward, done, map[string]any{}
}

func (e *Env) dispatch(action int) []Outcome {
	objs := e.eng.Objects()
	var out []Outcome
	record := func(o *scene.Object, op string, err error) {
		oc := Outcome{Object: o.Name, Op: op, OK: err == nil}
		if err != nil {
			oc.Err = err.Error()
		}
		out = append(out, oc)
	}

	switch action {
	case ActionDecimate:
		for _, o := range objs {
			record(o, "decimate", e.eng.Decimate(o, e.tune.DecimateRatio))
		}
	case ActionMerge:
		for _, o := range objs {
			record(o, "merge", e.eng.MergeByDistance(o, e.tune.MergeThreshold))
		}
	case ActionUVProject:
		for _, o := range objs {
			if o.HasUV() {
				continue
			}
			record(o, "uv_project", e.eng.SmartUVProject(o, e.tune.UVAngleLimit, e.tune.UVIslandMargin))
		}
	case ActionLayout:
		x := 0.0
		for _, o := range objs {
			err := e.eng.SetAxisLocation(o, 0, x)
			record(o, "layout", err)
			if err != nil {
				// A failed placement does not advance the running offset.
				continue
			}
			ext := o.Dimensions()[0]
			if ext <= 0 {
				ext = 1.0
			}
			x += ext * e.tune.LayoutSpacing
		}
	default:
		out = append(out, Outcome{Op: "noop", OK: true})
	}
	return out
}

// Observe summarizes current scene state: object and triangle counts, the
// first object's bound-box origin corner, and the extents of up to the first
// five objects packed into the fixed 15-slot dims vector.
func (e *Env) Observe() protocol.Observation {
	objs := e.eng.Objects()

	var obs protocol.Observation
	obs.NObjs = len(objs)
	for _, o := range objs {
		obs.NTris += o.Polygons
	}
	if len(objs) > 0 {
		obs.BBox0 = objs[0].BBoxMin
	}
	for i, o := range objs {
		if i >= obsMaxObjects {
			break
		}
		d := o.Dimensions()
		copy(obs.Dims[i*3:(i+1)*3], d[:])
	}
	return obs
}

// Reward is a pure function of the observation: penalize triangles, penalize
// object counts past the free allowance.
func (e *Env) Reward(obs protocol.Observation) float64 {
	r := e.tune.Reward.TriWeight * float64(obs.NTris)
	if extra := obs.NObjs - e.tune.Reward.FreeObjs; extra > 0 {
		r += e.tune.Reward.ObjWeight * float64(extra)
	}
	return r
}

// Save exports the scene. Failures come back as errors for the structured
// save reply; they are never fatal.
func (e *Env) Save(path string) error {
	err := e.eng.Export(path)

	entry := SaveLogEntry{Path: path, OK: err == nil, At: time.Now().UTC()}
	if err != nil {
		entry.Err = err.Error()
	}
	for _, d := range e.diags {
		d.WriteSave(entry)
	}
	return err
}
