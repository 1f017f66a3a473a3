package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeRequest_ActionDefaultsToZero(t *testing.T) {
	r, err := DecodeRequest([]byte(`{"cmd":"step"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Cmd != CmdStep || r.Action != 0 {
		t.Fatalf("got cmd=%q action=%d", r.Cmd, r.Action)
	}
}

func TestDecodeRequest_Malformed(t *testing.T) {
	if _, err := DecodeRequest([]byte(`{"cmd":"step"`)); err == nil {
		t.Fatal("truncated JSON decoded without error")
	}
	if _, err := DecodeRequest(nil); err == nil {
		t.Fatal("empty input decoded without error")
	}
}

func TestObservation_WireShape(t *testing.T) {
	b, err := json.Marshal(Observation{NObjs: 1, NTris: 12, BBox0: [3]float64{-1, 0, 2}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var dims []float64
	if err := json.Unmarshal(m["dims"], &dims); err != nil {
		t.Fatalf("dims: %v", err)
	}
	if len(dims) != 15 {
		t.Fatalf("dims length %d, want 15", len(dims))
	}
}

func TestStepReply_InfoAlwaysPresent(t *testing.T) {
	b, err := json.Marshal(StepReply{Info: map[string]any{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"info":{}`) {
		t.Fatalf("info object missing from %s", b)
	}
}

func TestSaveReply_OmitsUnsetFields(t *testing.T) {
	b, _ := json.Marshal(SaveReply{Saved: false, Error: ErrNoPath})
	if strings.Contains(string(b), `"path":`) {
		t.Fatalf("failure reply leaked path field: %s", b)
	}
	b, _ = json.Marshal(SaveReply{Saved: true, Path: "/tmp/x.json"})
	if strings.Contains(string(b), `"error":`) {
		t.Fatalf("success reply leaked error field: %s", b)
	}
}
