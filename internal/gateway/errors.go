package gateway

import (
	"errors"
	"fmt"
)

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// RequestError means the remote answered with a non-2xx status.
type RequestError struct {
	Op     string
	Status int
	// Detail is the server's own message, or a generic one for the operation.
	Detail string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Detail)
}

// NotFoundError is a RequestError specialised for missing resources.
type NotFoundError struct {
	Resource string
	Name     string
	Detail   string
}

func (e *NotFoundError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %q not found: %s", e.Resource, e.Name, e.Detail)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
}

// NetworkError covers everything where no usable response was obtained:
// connection failures, timeouts, cancellation and undecodable bodies.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsRequest(err error) bool {
	var r *RequestError
	return errors.As(err, &r)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}

// Detail extracts the most user-facing message from a gateway error.
func Detail(err error) string {
	var (
		v *ValidationError
		r *RequestError
		n *NotFoundError
	)
	switch {
	case errors.As(err, &v):
		return v.Message
	case errors.As(err, &r):
		return r.Detail
	case errors.As(err, &n):
		return n.Error()
	case err != nil:
		return err.Error()
	}
	return ""
}
