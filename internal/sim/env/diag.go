package env

import "time"

// Per-object mutation outcomes are collected on every dispatch. The trainer
// reply deliberately ignores them (failed objects are skipped, the step always
// succeeds); sinks keep the behavior observable.

type Outcome struct {
	Object string `json:"object"`
	Op     string `json:"op"`
	OK     bool   `json:"ok"`
	Err    string `json:"err,omitempty"`
}

type EpisodeStart struct {
	Episode int       `json:"episode"`
	Asset   string    `json:"asset,omitempty"`
	NObjs   int       `json:"n_objs"`
	NTris   int       `json:"n_tris"`
	At      time.Time `json:"at"`
}

type StepLogEntry struct {
	Episode  int       `json:"episode"`
	Step     int       `json:"step"`
	Action   int       `json:"action"`
	Reward   float64   `json:"reward"`
	Done     bool      `json:"done"`
	NObjs    int       `json:"n_objs"`
	NTris    int       `json:"n_tris"`
	Outcomes []Outcome `json:"outcomes,omitempty"`
	At       time.Time `json:"at"`
}

type SaveLogEntry struct {
	Path string    `json:"path"`
	OK   bool      `json:"ok"`
	Err  string    `json:"err,omitempty"`
	At   time.Time `json:"at"`
}

// DiagSink receives environment diagnostics out-of-band. Sinks must not
// block; the trainer path runs through them synchronously.
type DiagSink interface {
	WriteEpisodeStart(EpisodeStart)
	WriteStep(StepLogEntry)
	WriteSave(SaveLogEntry)
}
