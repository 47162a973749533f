package task

// Envelope is the JSON wrapper around every API response. Success=false
// always carries Message; Error is diagnostic detail only.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK builds a successful envelope around data.
func OK[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Success: true, Data: &data, Message: message}
}

// Fail builds a failed envelope. detail may be empty.
func Fail(message, detail string) Envelope[struct{}] {
	return Envelope[struct{}]{Message: message, Error: detail}
}
