// Package outcome provides the success/failure result shape shared by the
// pipeline stages and the workflow executor.
package outcome

import (
	"encoding/json"
	"fmt"
)

// ErrorInfo describes why an operation failed.
type ErrorInfo struct {
	InquiryID string `json:"inquiryId,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Message   string `json:"message"`
}

func (e ErrorInfo) Error() string {
	switch {
	case e.InquiryID != "" && e.Stage != "":
		return fmt.Sprintf("inquiry %s: %s stage: %s", e.InquiryID, e.Stage, e.Message)
	case e.InquiryID != "":
		return fmt.Sprintf("inquiry %s: %s", e.InquiryID, e.Message)
	case e.Stage != "":
		return fmt.Sprintf("%s stage: %s", e.Stage, e.Message)
	default:
		return e.Message
	}
}

// Outcome is either a value or an ErrorInfo, never both.
type Outcome[T any] struct {
	success bool
	value   T
	err     ErrorInfo
}

func Ok[T any](value T) Outcome[T] {
	return Outcome[T]{success: true, value: value}
}

func Fail[T any](info ErrorInfo) Outcome[T] {
	return Outcome[T]{err: info}
}

// Failf is a shorthand for a failure with only a message.
func Failf[T any](format string, args ...interface{}) Outcome[T] {
	return Fail[T](ErrorInfo{Message: fmt.Sprintf(format, args...)})
}

func (o Outcome[T]) Success() bool { return o.success }

// Value returns the zero value of T on failure.
func (o Outcome[T]) Value() T { return o.value }

// Error returns the failure detail. It is only meaningful when Success is false.
func (o Outcome[T]) Error() ErrorInfo { return o.err }

// Get mirrors the comma-ok idiom.
func (o Outcome[T]) Get() (T, bool) { return o.value, o.success }

// Propagate re-types a failure so it can be returned from a caller with a
// different value type.
func Propagate[U, T any](o Outcome[T]) Outcome[U] {
	return Outcome[U]{err: o.err}
}

type wire[T any] struct {
	Success bool       `json:"success"`
	Value   *T         `json:"value,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

func (o Outcome[T]) MarshalJSON() ([]byte, error) {
	if o.success {
		v := o.value
		return json.Marshal(wire[T]{Success: true, Value: &v})
	}
	e := o.err
	return json.Marshal(wire[T]{Success: false, Error: &e})
}

func (o *Outcome[T]) UnmarshalJSON(data []byte) error {
	var w wire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Outcome[T]{success: w.Success}
	if w.Success {
		if w.Value != nil {
			o.value = *w.Value
		}
		return nil
	}
	if w.Error != nil {
		o.err = *w.Error
	}
	return nil
}
