package model

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

type ValidationFinding struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Field    string   `json:"field,omitempty"`
}

type ValidationResult struct {
	Errors   int                 `json:"errors"`
	Warnings int                 `json:"warnings"`
	Findings []ValidationFinding `json:"findings"`
}

func (r *ValidationResult) Add(f ValidationFinding) {
	r.Findings = append(r.Findings, f)
	switch f.Severity {
	case SeverityError:
		r.Errors++
	case SeverityWarning:
		r.Warnings++
	}
}

func (r *ValidationResult) Valid() bool {
	return r.Errors == 0
}

// FirstError returns the message of the first error finding, or "".
func (r *ValidationResult) FirstError() string {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return f.Message
		}
	}
	return ""
}
