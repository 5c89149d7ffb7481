package dispatch

// Result is the outcome of a send call. Failures are reported here rather
// than as errors so callers always get the same shape.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func succeeded(messageID string) Result {
	return Result{Success: true, MessageID: messageID}
}

func failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}
