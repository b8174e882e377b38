package tools

import (
	"encoding/json"

	"github.com/dvloznov/smart-budget/internal/analytics"
	"github.com/dvloznov/smart-budget/internal/categorize"
	"github.com/dvloznov/smart-budget/internal/domain"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the request/response envelope every entry point returns.
// Payload fields left nil are omitted from the JSON form; an empty,
// non-nil slice is rendered as [].
type Response struct {
	Status       string
	ErrorMessage string
	Err          error

	Transactions []domain.Transaction
	Count        *int
	Dropped      map[domain.DropReason]int
	Analytics    *analytics.Summary
	Anomalies    []analytics.Anomaly
	Path         string
	Sources      []string
	Rules        categorize.Rules
}

// OK reports whether the envelope carries a success status.
func (r Response) OK() bool {
	return r.Status == StatusSuccess
}

func success() Response {
	return Response{Status: StatusSuccess}
}

func failure(err error) Response {
	return Response{Status: StatusError, ErrorMessage: err.Error(), Err: err}
}

// MarshalJSON renders {"status": ..., "error_message": ..., <payload>}.
func (r Response) MarshalJSON() ([]byte, error) {
	out := map[string]any{"status": r.Status}
	if r.Status == StatusError {
		out["error_message"] = r.ErrorMessage
	}
	if r.Transactions != nil {
		out["transactions"] = r.Transactions
	}
	if r.Count != nil {
		out["count"] = *r.Count
	}
	if r.Dropped != nil {
		out["dropped"] = r.Dropped
	}
	if r.Analytics != nil {
		out["analytics"] = r.Analytics
	}
	if r.Anomalies != nil {
		out["anomalies"] = r.Anomalies
	}
	if r.Path != "" {
		out["path"] = r.Path
	}
	if r.Sources != nil {
		out["sources"] = r.Sources
	}
	if r.Rules != nil {
		out["rules"] = r.Rules
	}
	return json.Marshal(out)
}
