package protocol

import "encoding/json"

// Command names.
const (
	CmdReset = "reset"
	CmdStep  = "step"
	CmdPing  = "ping"
	CmdSave  = "save"
	CmdClose = "close"
)

// Request is one trainer command, routed by Cmd. Fields beyond Cmd are
// command-specific; an absent field keeps its zero value, so a step with no
// action is action 0.
type Request struct {
	Cmd    string `json:"cmd"`
	Action int    `json:"action,omitempty"`
	Path   string `json:"path,omitempty"`
}

func DecodeRequest(b []byte) (Request, error) {
	var r Request
	err := json.Unmarshal(b, &r)
	return r, err
}
