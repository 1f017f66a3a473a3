package protocol

// Error strings carried in structured replies. These are wire contract, not
// Go errors: the worker never surfaces a raw fault to the trainer.
const (
	// Semantic: unrecognized cmd; session continues.
	ErrUnknownCmd = "unknown_cmd"

	// Save: missing path field.
	ErrNoPath = "no path"
)
