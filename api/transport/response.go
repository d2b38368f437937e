package transport

import "encoding/json"

// Envelope wraps every admin API response. Success responses carry Data;
// error responses carry Code and Error. Meta is free-form and optional.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

// NewSuccess wraps a payload in a success envelope.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: statusSuccess,
		Data:   data,
		Meta:   meta,
	}
}

// NewError wraps an error in an error envelope. code is the machine-readable
// classification, err the human-readable detail.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: statusError,
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String renders the envelope as JSON for logging, best effort.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
