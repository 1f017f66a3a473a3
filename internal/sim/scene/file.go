package scene

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Scene files are a JSON document with a versioned header; paths ending in
// .zst are zstd-compressed. The same format serves asset import and the
// trainer's save command.

const fileVersion = 1

type fileHeader struct {
	Version   int    `json:"version"`
	Generator string `json:"generator"`
}

type sceneFile struct {
	Header  fileHeader `json:"header"`
	Objects []objectV1 `json:"objects"`
}

type objectV1 struct {
	Name       string     `json:"name"`
	Polygons   int        `json:"polygons"`
	Vertices   int        `json:"vertices"`
	DupVerts   int        `json:"dup_verts,omitempty"`
	DupSpacing float64    `json:"dup_spacing,omitempty"`
	BBoxMin    [3]float64 `json:"bbox_min"`
	BBoxMax    [3]float64 `json:"bbox_max"`
	Location   [3]float64 `json:"location"`
	UVLayers   []string   `json:"uv_layers,omitempty"`
}

func compressed(path string) bool { return strings.HasSuffix(path, ".zst") }

func WriteScene(path string, objs []*Object) error {
	doc := sceneFile{
		Header: fileHeader{Version: fileVersion, Generator: "meshgym"},
	}
	for _, o := range objs {
		doc.Objects = append(doc.Objects, objectV1{
			Name:       o.Name,
			Polygons:   o.Polygons,
			Vertices:   o.Vertices,
			DupVerts:   o.DupVerts,
			DupSpacing: o.DupSpacing,
			BBoxMin:    o.BBoxMin,
			BBoxMax:    o.BBoxMax,
			Location:   o.Location,
			UVLayers:   o.UVLayers,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var w io.Writer = f
	var enc *zstd.Encoder
	if compressed(path) {
		enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			_ = f.Close()
			return err
		}
		w = enc
	}
	bw := bufio.NewWriter(w)

	err = json.NewEncoder(bw).Encode(doc)
	if err2 := bw.Flush(); err == nil {
		err = err2
	}
	if enc != nil {
		if err2 := enc.Close(); err == nil {
			err = err2
		}
	}
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return err
}

func ReadScene(path string) ([]*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}

	var doc sceneFile
	if err := json.NewDecoder(bufio.NewReader(r)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("scene file: %w", err)
	}
	if doc.Header.Version != fileVersion {
		return nil, fmt.Errorf("scene file: unsupported version %d", doc.Header.Version)
	}

	objs := make([]*Object, 0, len(doc.Objects))
	for _, v := range doc.Objects {
		objs = append(objs, &Object{
			Name:       v.Name,
			Polygons:   v.Polygons,
			Vertices:   v.Vertices,
			DupVerts:   v.DupVerts,
			DupSpacing: v.DupSpacing,
			BBoxMin:    v.BBoxMin,
			BBoxMax:    v.BBoxMax,
			Location:   v.Location,
			UVLayers:   v.UVLayers,
		})
	}
	return objs, nil
}
