package protocol

// Observation is the structured scene summary returned on reset and step.
// Dims is a fixed 15-slot vector (x,y,z extents of up to the first 5 mesh
// objects, zero-padded) so the trainer always sees the same shape.
type Observation struct {
	NObjs int         `json:"n_objs"`
	NTris int         `json:"n_tris"`
	BBox0 [3]float64  `json:"bbox0"`
	Dims  [15]float64 `json:"dims"`
}

// reset -> {obs}
type ResetReply struct {
	Obs Observation `json:"obs"`
}

// step -> {obs, reward, done, info}
type StepReply struct {
	Obs    Observation    `json:"obs"`
	Reward float64        `json:"reward"`
	Done   bool           `json:"done"`
	Info   map[string]any `json:"info"`
}

// ping -> {pong}
type PongReply struct {
	Pong bool `json:"pong"`
}

// save -> {saved, path} on success, {saved, error} on failure.
type SaveReply struct {
	Saved bool   `json:"saved"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// close -> {closed}, then the session ends.
type CloseReply struct {
	Closed bool `json:"closed"`
}

// ErrorReply answers any unrecognized command; the session continues.
type ErrorReply struct {
	Error string `json:"error"`
}
