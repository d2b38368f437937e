package monitor

import "time"

// Status is a point-in-time view of the pipeline's collaborators.
type Status struct {
	Warehouse bool      `json:"warehouse"`
	Redis     bool      `json:"redis"`
	RawStore  bool      `json:"raw_store"`
	RawEvents int       `json:"raw_events"`
	LastCheck time.Time `json:"last_check"`
}
