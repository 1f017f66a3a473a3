package env

import (
	"io"
	"log"
	"math"
	"testing"

	"meshgym.ai/internal/protocol"
	"meshgym.ai/internal/sim/scene"
	"meshgym.ai/internal/sim/tuning"
)

type captureSink struct {
	episodes []EpisodeStart
	steps    []StepLogEntry
	saves    []SaveLogEntry
}

func (c *captureSink) WriteEpisodeStart(e EpisodeStart) { c.episodes = append(c.episodes, e) }
func (c *captureSink) WriteStep(s StepLogEntry)         { c.steps = append(c.steps, s) }
func (c *captureSink) WriteSave(s SaveLogEntry)         { c.saves = append(c.saves, s) }

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestEnv(t *testing.T) (*Env, *scene.MemoryEngine) {
	t.Helper()
	eng := scene.NewMemoryEngine()
	return New(eng, tuning.Defaults(), "", quiet()), eng
}

func addCubes(eng *scene.MemoryEngine, n int, polys int, size float64) {
	for i := 0; i < n; i++ {
		eng.Add(&scene.Object{
			Name:     string(rune('a' + i%26)),
			Polygons: polys,
			Vertices: polys,
			BBoxMin:  [3]float64{0, 0, 0},
			BBoxMax:  [3]float64{size, size, size},
		})
	}
}

func TestReset_EmptyBaseline(t *testing.T) {
	e, _ := newTestEnv(t)
	obs := e.Reset()
	if obs.NObjs != 0 || obs.NTris != 0 {
		t.Fatalf("obs = %+v", obs)
	}
	if obs.BBox0 != [3]float64{} {
		t.Fatalf("bbox0 = %v", obs.BBox0)
	}
	if obs.Dims != [15]float64{} {
		t.Fatalf("dims = %v", obs.Dims)
	}
}

func TestReset_Idempotent(t *testing.T) {
	e, eng := newTestEnv(t)
	first := e.Reset()
	addCubes(eng, 3, 10, 1)
	e.Step(ActionDecimate)
	second := e.Reset()
	if first != second {
		t.Fatalf("baselines differ: %+v vs %+v", first, second)
	}
	if e.StepCount() != 0 {
		t.Fatalf("step count after reset: %d", e.StepCount())
	}
}

func TestObserve_DimsAlways15(t *testing.T) {
	for _, n := range []int{0, 3, 5, 20} {
		e, eng := newTestEnv(t)
		e.Reset()
		addCubes(eng, n, 6, 2)

		obs := e.Observe()
		if obs.NObjs != n {
			t.Fatalf("n=%d: n_objs = %d", n, obs.NObjs)
		}
		// [15]float64 guarantees shape; check the fill pattern.
		filled := n
		if filled > 5 {
			filled = 5
		}
		for i := 0; i < filled*3; i++ {
			if obs.Dims[i] != 2 {
				t.Fatalf("n=%d: dims[%d] = %v, want 2", n, i, obs.Dims[i])
			}
		}
		for i := filled * 3; i < 15; i++ {
			if obs.Dims[i] != 0 {
				t.Fatalf("n=%d: dims[%d] = %v, want 0", n, i, obs.Dims[i])
			}
		}
	}
}

func TestReward(t *testing.T) {
	e, _ := newTestEnv(t)
	if r := e.Reward(protocol.Observation{}); r != 0 {
		t.Fatalf("reward(0,0) = %v", r)
	}
	r := e.Reward(protocol.Observation{NObjs: 10, NTris: 1000})
	if math.Abs(r-(-1.04)) > 1e-9 {
		t.Fatalf("reward(1000,10) = %v, want -1.04", r)
	}
	// Below the free-object allowance only triangles count.
	r = e.Reward(protocol.Observation{NObjs: 4, NTris: 100})
	if math.Abs(r-(-0.1)) > 1e-9 {
		t.Fatalf("reward(100,4) = %v, want -0.1", r)
	}
}

func TestStep_CountAndTermination(t *testing.T) {
	e, _ := newTestEnv(t)
	e.Reset()
	for i := 1; i <= 55; i++ {
		_, _, done, info := e.Step(ActionDecimate)
		if e.StepCount() != i {
			t.Fatalf("step_count = %d, want %d", e.StepCount(), i)
		}
		if want := i >= 50; done != want {
			t.Fatalf("step %d: done = %v, want %v", i, done, want)
		}
		if len(info) != 0 {
			t.Fatalf("info = %v", info)
		}
	}
	e.Reset()
	if _, _, done, _ := e.Step(ActionDecimate); done {
		t.Fatal("done stayed true across reset")
	}
}

func TestStep_UnknownActionIsNoop(t *testing.T) {
	e, eng := newTestEnv(t)
	e.Reset()
	addCubes(eng, 2, 50, 1)
	before := e.Observe()

	obs, _, _, _ := e.Step(99)
	if obs != before {
		t.Fatalf("no-op mutated the scene: %+v vs %+v", obs, before)
	}
	if e.StepCount() != 1 {
		t.Fatalf("step_count = %d, want 1", e.StepCount())
	}
}

func TestStep_Decimate(t *testing.T) {
	e, eng := newTestEnv(t)
	e.Reset()
	addCubes(eng, 2, 100, 1)

	obs, reward, _, _ := e.Step(ActionDecimate)
	if obs.NTris != 170 {
		t.Fatalf("n_tris = %d, want 170", obs.NTris)
	}
	if math.Abs(reward-(-0.17)) > 1e-9 {
		t.Fatalf("reward = %v, want -0.17", reward)
	}
}

func TestStep_UVProjectOnlyWhereMissing(t *testing.T) {
	e, eng := newTestEnv(t)
	e.Reset()
	addCubes(eng, 2, 6, 1)
	eng.Objects()[0].UVLayers = []string{"UVMap"}

	sink := &captureSink{}
	e.AttachDiag(sink)
	e.Step(ActionUVProject)

	last := sink.steps[len(sink.steps)-1]
	if len(last.Outcomes) != 1 {
		t.Fatalf("outcomes = %+v, want one (object with UVs skipped)", last.Outcomes)
	}
	if !eng.Objects()[1].HasUV() {
		t.Fatal("second object still lacks UVs")
	}
	if len(eng.Objects()[0].UVLayers) != 1 {
		t.Fatal("existing UV layer duplicated")
	}
}

func TestStep_LayoutAdvancesByExtent(t *testing.T) {
	e, eng := newTestEnv(t)
	e.Reset()
	// Extents 2, 0 (degenerate, treated as 1), 4.
	eng.Add(&scene.Object{Name: "a", BBoxMax: [3]float64{2, 1, 1}})
	eng.Add(&scene.Object{Name: "b"})
	eng.Add(&scene.Object{Name: "c", BBoxMax: [3]float64{4, 1, 1}})

	e.Step(ActionLayout)

	objs := eng.Objects()
	if objs[0].Location[0] != 0 {
		t.Fatalf("a.x = %v, want 0", objs[0].Location[0])
	}
	if math.Abs(objs[1].Location[0]-2.6) > 1e-9 {
		t.Fatalf("b.x = %v, want 2.6", objs[1].Location[0])
	}
	if math.Abs(objs[2].Location[0]-(2.6+1.3)) > 1e-9 {
		t.Fatalf("c.x = %v, want 3.9", objs[2].Location[0])
	}
}

func TestStep_PerObjectFailureSkipped(t *testing.T) {
	e, eng := newTestEnv(t)
	e.Reset()
	addCubes(eng, 3, 100, 1)
	bad := eng.Objects()[1]
	eng.FailObject(bad.Name)

	sink := &captureSink{}
	e.AttachDiag(sink)

	obs, _, _, _ := e.Step(ActionDecimate)
	// Two objects decimated, the failing one untouched.
	if obs.NTris != 85+100+85 {
		t.Fatalf("n_tris = %d", obs.NTris)
	}

	last := sink.steps[len(sink.steps)-1]
	var failed int
	for _, oc := range last.Outcomes {
		if !oc.OK {
			failed++
			if oc.Err == "" {
				t.Fatal("failed outcome has no error text")
			}
		}
	}
	if failed != 1 {
		t.Fatalf("failed outcomes = %d, want 1", failed)
	}
}

func TestDiag_EpisodeAndSave(t *testing.T) {
	e, _ := newTestEnv(t)
	sink := &captureSink{}
	e.AttachDiag(sink)

	e.Reset()
	e.Reset()
	if len(sink.episodes) != 2 || sink.episodes[1].Episode != 2 {
		t.Fatalf("episodes = %+v", sink.episodes)
	}

	if err := e.Save(t.TempDir() + "/scene.json"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(sink.saves) != 1 || !sink.saves[0].OK {
		t.Fatalf("saves = %+v", sink.saves)
	}
}
