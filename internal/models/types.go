package models

import (
	"time"
)

type Outcome string

const (
	OutcomePass  Outcome = "pass"
	OutcomeFail  Outcome = "fail"
	OutcomeError Outcome = "error"
)

// ExecutionMode selects where a validator runs. It is fixed at validator
// construction and never changes for the validator's lifetime.
type ExecutionMode string

const (
	ModeLocal  ExecutionMode = "local"
	ModeRemote ExecutionMode = "remote"
)

// OnFailAction controls what the guard does when a validator fails a fragment.
type OnFailAction string

const (
	// OnFailException stops the run at the first failure.
	OnFailException OnFailAction = "exception"
	// OnFailFilter records the failure and keeps going.
	OnFailFilter OnFailAction = "filter"
	// OnFailFix substitutes the validator's corrected output and keeps going.
	OnFailFix OnFailAction = "fix"
)

type SourceType string

const (
	SourceTypeText     SourceType = "text"
	SourceTypeFragment SourceType = "fragment"
)

type Metadata map[string]string

// Input message

type ValidatePayload struct {
	RequestID string     `json:"request_id"`
	Source    SourceType `json:"source_type"`
	Validator string     `json:"validator,omitempty"`
	Text      string     `json:"text"`
	Metadata  Metadata   `json:"metadata,omitempty"`
}

// Normalized internal object. One request maps to exactly one result.
type ValidationRequest struct {
	RequestID string    `json:"request_id" jsonschema:"required,description=Unique request identifier"`
	Validator string    `json:"validator" jsonschema:"required,description=Validator name to run"`
	Text      string    `json:"text" jsonschema:"required,description=Text or stream fragment to validate"`
	Metadata  Metadata  `json:"metadata,omitempty" jsonschema:"description=Optional caller-supplied metadata"`
	CreatedAt time.Time `json:"created_at" jsonschema:"description=Time when the request was created"`
}

// One validator's output for one request.
type ValidationResult struct {
	RequestID     string        `json:"request_id"`
	Validator     string        `json:"validator"`
	Outcome       Outcome       `json:"outcome"`
	Reason        string        `json:"reason,omitempty"`
	CorrectedText string        `json:"corrected_text,omitempty"`
	Mode          ExecutionMode `json:"execution_mode"`
	ModelVersion  string        `json:"model_version,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
}

// Passed reports whether the request cleared the validator.
func (r ValidationResult) Passed() bool {
	return r.Outcome == OutcomePass
}

// Final output of a guard run over a single text or fragment.
type GuardResult struct {
	RequestID    string             `json:"request_id"`
	Text         string             `json:"text"`
	OutputText   string             `json:"output_text"`
	Results      []ValidationResult `json:"results"`
	Outcome      Outcome            `json:"outcome"`
	ShortCircuit bool               `json:"short_circuit,omitempty"`
}
