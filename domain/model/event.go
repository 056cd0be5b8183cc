package model

import (
	"encoding/json"
	"fmt"
)

// StatusCode classifies the outcome of one template application.
type StatusCode int

const (
	StatusSuccess StatusCode = iota
	StatusNoChangesDetected
	StatusError
)

func (s StatusCode) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusNoChangesDetected:
		return "NoChangesDetected"
	case StatusError:
		return "Error"
	default:
		return fmt.Sprintf("StatusCode(%d)", int(s))
	}
}

func (s StatusCode) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *StatusCode) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "Success":
		*s = StatusSuccess
	case "NoChangesDetected":
		*s = StatusNoChangesDetected
	case "Error":
		*s = StatusError
	default:
		return fmt.Errorf("unknown status code %q", str)
	}
	return nil
}

// RepositoryUpdateEvent records the result of applying one template.
type RepositoryUpdateEvent struct {
	Template   string     `json:"template"`
	Message    string     `json:"message"`
	StatusCode StatusCode `json:"statusCode"`
}
