// Package scene holds the mutable scene graph and the capability surface the
// environment drives: object enumeration, geometry stats, and the parametrized
// mutate operations. The environment never looks past this interface, so a
// DCC-backed engine can replace the in-memory one without touching it.
package scene

// Object is one mesh object. BBoxMin and BBoxMax are local-space corners;
// moving an object changes Location only, matching how DCC bound boxes work.
type Object struct {
	Name     string
	Polygons int
	Vertices int

	// Near-duplicate vertices: DupVerts vertices sit within DupSpacing of a
	// neighbour and collapse under a merge whose threshold covers them.
	DupVerts   int
	DupSpacing float64

	BBoxMin  [3]float64
	BBoxMax  [3]float64
	Location [3]float64

	UVLayers []string
}

func (o *Object) Dimensions() [3]float64 {
	var d [3]float64
	for i := range d {
		d[i] = o.BBoxMax[i] - o.BBoxMin[i]
	}
	return d
}

func (o *Object) HasUV() bool { return len(o.UVLayers) > 0 }

// Engine is the scene-mutation capability consumed by the environment state
// machine. Every method that touches a single object may fail for that object
// alone; callers decide whether such failures abort anything.
type Engine interface {
	// Reset drops all scene state and rebuilds the deterministic baseline,
	// importing assetPath when it is set and the file exists.
	Reset(assetPath string) error

	// Objects returns the mesh objects in enumeration order.
	Objects() []*Object

	Decimate(o *Object, ratio float64) error
	MergeByDistance(o *Object, threshold float64) error
	SmartUVProject(o *Object, angleLimit, islandMargin float64) error
	SetAxisLocation(o *Object, axis int, value float64) error

	Export(path string) error
}
