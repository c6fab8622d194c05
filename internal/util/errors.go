package util

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrGameNotFound      = errors.New("game not found")
	ErrLevelNotFound     = errors.New("level not found")
	ErrProgressNotFound  = errors.New("progress not found")
	ErrSessionNotFound   = errors.New("proctored session not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// Rejection codes returned to clients when a submission fails an integrity
// check. Clients branch on Code, not Message.
const (
	CodeTimeAnomaly            = "TIME_ANOMALY"
	CodeInvalidCircuit         = "INVALID_CIRCUIT"
	CodeInvalidScore           = "INVALID_SCORE"
	CodePrerequisitesNotMet    = "PREREQUISITES_NOT_MET"
	CodeTierMasteryRequired    = "TIER_MASTERY_REQUIRED"
	CodeVerificationFailed     = "SOLUTION_VERIFICATION_FAILED"
	CodeProctoringRequired     = "PROCTORING_REQUIRED"
	CodeInvalidProctoredSess   = "INVALID_PROCTORED_SESSION"
	CodeLockdownBrowserMissing = "LOCKDOWN_BROWSER_REQUIRED"
)

// RejectionError carries a machine-readable code plus structured detail for
// an integrity failure. It maps to HTTP 422 unless Status says otherwise.
type RejectionError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Status  int                    `json:"-"`
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RejectionError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return http.StatusUnprocessableEntity
}

func Reject(code, message string, details map[string]interface{}) *RejectionError {
	return &RejectionError{Code: code, Message: message, Details: details}
}

// AsRejection unwraps err into a RejectionError if one is in the chain.
func AsRejection(err error) (*RejectionError, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
