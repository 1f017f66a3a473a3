package scene

import (
	"fmt"
	"os"
)

// MemoryEngine is the in-process Engine implementation. It models just enough
// geometry (polygon counts, duplicate vertices, bound boxes, UV layers) for
// the mutations to have observable effects.
type MemoryEngine struct {
	objs    []*Object
	failing map[string]bool
}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{failing: make(map[string]bool)}
}

func (e *MemoryEngine) Reset(assetPath string) error {
	e.objs = nil
	e.failing = make(map[string]bool)
	if assetPath == "" {
		return nil
	}
	if _, err := os.Stat(assetPath); os.IsNotExist(err) {
		// Absent asset still yields the empty baseline.
		return nil
	}
	objs, err := ReadScene(assetPath)
	if err != nil {
		return fmt.Errorf("import %s: %w", assetPath, err)
	}
	e.objs = objs
	return nil
}

func (e *MemoryEngine) Objects() []*Object { return e.objs }

// Add appends a mesh object to the scene. Asset import and tests populate
// scenes through it.
func (e *MemoryEngine) Add(o *Object) { e.objs = append(e.objs, o) }

// FailObject marks an object so every mutation on it errors, standing in for
// the operation failures a real engine produces on degenerate geometry.
func (e *MemoryEngine) FailObject(name string) { e.failing[name] = true }

func (e *MemoryEngine) check(o *Object) error {
	if e.failing[o.Name] {
		return fmt.Errorf("%s: mutation failed", o.Name)
	}
	return nil
}

func (e *MemoryEngine) Decimate(o *Object, ratio float64) error {
	if err := e.check(o); err != nil {
		return err
	}
	if ratio <= 0 || ratio > 1 {
		return fmt.Errorf("%s: decimate ratio %v out of range", o.Name, ratio)
	}
	p := int(float64(o.Polygons) * ratio)
	if o.Polygons > 0 && p < 1 {
		p = 1
	}
	o.Polygons = p
	return nil
}

func (e *MemoryEngine) MergeByDistance(o *Object, threshold float64) error {
	if err := e.check(o); err != nil {
		return err
	}
	if o.DupVerts == 0 || threshold < o.DupSpacing {
		return nil
	}
	collapsed := o.DupVerts
	o.Vertices -= collapsed
	if o.Vertices < 0 {
		o.Vertices = 0
	}
	// Collapsing duplicate pairs removes the degenerate faces between them.
	o.Polygons -= collapsed / 2
	if o.Polygons < 0 {
		o.Polygons = 0
	}
	o.DupVerts = 0
	return nil
}

func (e *MemoryEngine) SmartUVProject(o *Object, angleLimit, islandMargin float64) error {
	if err := e.check(o); err != nil {
		return err
	}
	_ = angleLimit
	_ = islandMargin
	o.UVLayers = append(o.UVLayers, "UVMap")
	return nil
}

func (e *MemoryEngine) SetAxisLocation(o *Object, axis int, value float64) error {
	if err := e.check(o); err != nil {
		return err
	}
	if axis < 0 || axis > 2 {
		return fmt.Errorf("%s: axis %d out of range", o.Name, axis)
	}
	o.Location[axis] = value
	return nil
}

func (e *MemoryEngine) Export(path string) error {
	return WriteScene(path, e.objs)
}
