package client

// Status represents the health check response.
type Status struct {
	// Status is the health status string (e.g. "ok").
	Status string `json:"status"`
	// Version is the daemon version.
	Version string `json:"version,omitempty"`
}
