package alerts

import (
	"encoding/json"

	"github.com/kjstillabower/weather-report-service/internal/client"
)

// Envelope is a JSON-LD collection of active alerts for a point.
type Envelope struct {
	Context json.RawMessage `json:"@context,omitempty"`
	Graph   []Record        `json:"@graph"`
	Title   string          `json:"title,omitempty"`
	Updated string          `json:"updated,omitempty"`
}

// Record is one CAP alert. Parameters is nil when the upstream record has none,
// which marks the record as not reportable.
type Record struct {
	ID          string      `json:"id,omitempty"`
	Event       string      `json:"event,omitempty"`
	AreaDesc    string      `json:"areaDesc,omitempty"`
	Headline    string      `json:"headline,omitempty"`
	Instruction string      `json:"instruction,omitempty"`
	Response    string      `json:"response,omitempty"`
	Severity    string      `json:"severity,omitempty"`
	Urgency     string      `json:"urgency,omitempty"`
	Certainty   string      `json:"certainty,omitempty"`
	Parameters  *Parameters `json:"parameters,omitempty"`
}

// Parameters holds the structured alert parameters the condenser reads.
type Parameters struct {
	NWSHeadline []string `json:"NWSheadline,omitempty"`
}

// Parse decodes an alerts body.
func Parse(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &client.ParseError{Service: Service, Err: err}
	}
	return &env, nil
}
