package digiflazz

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RC codes the provider documents as retryable conditions. Everything else
// on a failed order is a definitive rejection.
var transientRCs = map[string]bool{
	"82": true, // provider cut-off / maintenance window
	"83": true, // provider-side timeout
	"99": true, // general temporary failure
}

// GatewayError is returned for transport failures and failed provider
// orders. Transient errors may be retried; permanent ones must not be.
type GatewayError struct {
	Op         string
	RefID      string
	RC         string
	Message    string
	HTTPStatus int
	Raw        json.RawMessage
	Elapsed    time.Duration
	transient  bool
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("digiflazz %s ref=%s: %v", e.Op, e.RefID, e.Err)
	}
	return fmt.Sprintf("digiflazz %s ref=%s: rc=%s %s", e.Op, e.RefID, e.RC, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Transient() bool { return e.transient }

// IsTransient reports whether err is a retryable gateway error.
func IsTransient(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Transient()
}

// NewTransientError builds a retryable GatewayError; used by tests and fakes.
func NewTransientError(op string, err error) *GatewayError {
	return &GatewayError{Op: op, transient: true, Err: err}
}

// NewPermanentError builds a definitive GatewayError; used by tests and fakes.
func NewPermanentError(op, rc, message string) *GatewayError {
	return &GatewayError{Op: op, RC: rc, Message: message}
}
