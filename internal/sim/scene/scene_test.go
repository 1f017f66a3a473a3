package scene

import (
	"path/filepath"
	"testing"
)

func cube(name string, size float64) *Object {
	return &Object{
		Name:     name,
		Polygons: 6,
		Vertices: 8,
		BBoxMin:  [3]float64{-size / 2, -size / 2, -size / 2},
		BBoxMax:  [3]float64{size / 2, size / 2, size / 2},
	}
}

func TestDecimate(t *testing.T) {
	e := NewMemoryEngine()
	o := cube("c", 2)
	o.Polygons = 100
	e.Add(o)

	if err := e.Decimate(o, 0.85); err != nil {
		t.Fatalf("decimate: %v", err)
	}
	if o.Polygons != 85 {
		t.Fatalf("polygons = %d, want 85", o.Polygons)
	}

	// Never decimates a populated mesh to nothing.
	o.Polygons = 1
	if err := e.Decimate(o, 0.5); err != nil {
		t.Fatalf("decimate: %v", err)
	}
	if o.Polygons != 1 {
		t.Fatalf("polygons = %d, want 1", o.Polygons)
	}

	if err := e.Decimate(o, 0); err == nil {
		t.Fatal("ratio 0 accepted")
	}
}

func TestMergeByDistance(t *testing.T) {
	e := NewMemoryEngine()
	o := cube("c", 1)
	o.Vertices = 20
	o.Polygons = 10
	o.DupVerts = 4
	o.DupSpacing = 0.0001
	e.Add(o)

	// Threshold below the duplicate spacing leaves everything alone.
	if err := e.MergeByDistance(o, 0.00005); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if o.Vertices != 20 || o.DupVerts != 4 {
		t.Fatalf("merge below spacing mutated object: %+v", o)
	}

	if err := e.MergeByDistance(o, 0.0005); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if o.Vertices != 16 {
		t.Fatalf("vertices = %d, want 16", o.Vertices)
	}
	if o.Polygons != 8 {
		t.Fatalf("polygons = %d, want 8", o.Polygons)
	}
	if o.DupVerts != 0 {
		t.Fatalf("dup verts = %d, want 0", o.DupVerts)
	}
}

func TestSmartUVProjectAndLocation(t *testing.T) {
	e := NewMemoryEngine()
	o := cube("c", 1)
	e.Add(o)

	if o.HasUV() {
		t.Fatal("fresh object has UVs")
	}
	if err := e.SmartUVProject(o, 66.0, 0.02); err != nil {
		t.Fatalf("uv project: %v", err)
	}
	if !o.HasUV() {
		t.Fatal("uv layer missing after project")
	}

	if err := e.SetAxisLocation(o, 0, 3.5); err != nil {
		t.Fatalf("set location: %v", err)
	}
	if o.Location[0] != 3.5 {
		t.Fatalf("location.x = %v, want 3.5", o.Location[0])
	}
	if err := e.SetAxisLocation(o, 3, 0); err == nil {
		t.Fatal("axis 3 accepted")
	}
}

func TestFailObject(t *testing.T) {
	e := NewMemoryEngine()
	o := cube("bad", 1)
	o.Polygons = 100
	e.Add(o)
	e.FailObject("bad")

	if err := e.Decimate(o, 0.85); err == nil {
		t.Fatal("mutation on failing object succeeded")
	}
	if o.Polygons != 100 {
		t.Fatalf("failing mutation changed geometry: %d", o.Polygons)
	}
}

func TestReset_Baseline(t *testing.T) {
	e := NewMemoryEngine()
	e.Add(cube("c", 1))
	if err := e.Reset(""); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(e.Objects()) != 0 {
		t.Fatalf("objects after reset: %d", len(e.Objects()))
	}

	// Missing asset still yields the empty baseline.
	if err := e.Reset(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Fatalf("reset with missing asset: %v", err)
	}
	if len(e.Objects()) != 0 {
		t.Fatalf("objects after reset: %d", len(e.Objects()))
	}
}

func TestSceneFile_RoundTrip(t *testing.T) {
	for _, name := range []string{"scene.json", "scene.json.zst"} {
		path := filepath.Join(t.TempDir(), name)

		a := cube("a", 2)
		a.Polygons = 123
		a.UVLayers = []string{"UVMap"}
		b := cube("b", 1)
		b.DupVerts = 2
		b.DupSpacing = 0.0001

		if err := WriteScene(path, []*Object{a, b}); err != nil {
			t.Fatalf("%s: write: %v", name, err)
		}
		got, err := ReadScene(path)
		if err != nil {
			t.Fatalf("%s: read: %v", name, err)
		}
		if len(got) != 2 {
			t.Fatalf("%s: %d objects, want 2", name, len(got))
		}
		if got[0].Name != "a" || got[0].Polygons != 123 || !got[0].HasUV() {
			t.Fatalf("%s: first object = %+v", name, got[0])
		}
		if got[1].DupVerts != 2 || got[1].DupSpacing != 0.0001 {
			t.Fatalf("%s: second object = %+v", name, got[1])
		}
		if got[0].Dimensions() != [3]float64{2, 2, 2} {
			t.Fatalf("%s: dimensions = %v", name, got[0].Dimensions())
		}
	}
}

func TestReset_ImportsAsset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.json")
	if err := WriteScene(path, []*Object{cube("imported", 1)}); err != nil {
		t.Fatalf("write: %v", err)
	}

	e := NewMemoryEngine()
	if err := e.Reset(path); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(e.Objects()) != 1 || e.Objects()[0].Name != "imported" {
		t.Fatalf("objects = %+v", e.Objects())
	}
}
