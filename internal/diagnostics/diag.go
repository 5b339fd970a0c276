package diagnostics

import (
	"errors"

	"github.com/coreman2200/tinymatrix/model"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// FromError describes a failed operation. Render buffer errors get a
// specific code and hint.
func FromError(op string, err error) Diagnostic {
	d := Diagnostic{
		Severity: Err,
		Code:     "OP.FAILED",
		Summary:  op + " failed",
		Detail:   err.Error(),
		Evidence: map[string]any{"op": op},
	}
	switch {
	case errors.Is(err, model.ErrOutOfRange):
		d.Code = "FRAME.LEVEL_RANGE"
		d.SuggestedFixes = []string{"use levels 0..9"}
	case errors.Is(err, model.ErrIndexOutOfBounds):
		d.Code = "FRAME.INDEX_RANGE"
		d.SuggestedFixes = []string{"use rows and columns 0..4, and 5 rows of 5 levels for a full image"}
	}
	return d
}
