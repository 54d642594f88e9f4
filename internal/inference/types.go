package inference

import "time"

// EndpointConfig points a validator at a remote validation endpoint.
type EndpointConfig struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// validateRequest is the wire payload sent to the endpoint. It matches the
// body the validation API reads, so any guardkit API instance can serve as
// the endpoint.
type validateRequest struct {
	RequestID string            `json:"request_id"`
	Validator string            `json:"validator"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
