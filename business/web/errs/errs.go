// Package errs provides the error types returned to web clients.
package errs

import "errors"

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted carries an error through the request with the status code and
// the text the client is allowed to see. The wrapped error is what gets
// logged; Message, when set, is what gets returned.
type Trusted struct {
	Err     error
	Status  int
	Message string
	Fields  map[string]string
}

// NewTrusted wraps an error whose own text is safe to show the client.
func NewTrusted(err error, status int) error {
	return &Trusted{Err: err, Status: status}
}

// NewTrustedMessage wraps an error that must stay in the logs and shows
// the client the message instead.
func NewTrustedMessage(err error, message string, status int) error {
	return &Trusted{Err: err, Status: status, Message: message}
}

// NewTrustedFields wraps an error that is about specific request fields.
func NewTrustedFields(err error, status int, fields map[string]string) error {
	return &Trusted{Err: err, Status: status, Fields: fields}
}

// Error returns the text of the wrapped error for the logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap returns the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// Response returns the body sent to the client.
func (te *Trusted) Response() Response {
	msg := te.Message
	if msg == "" {
		msg = te.Err.Error()
	}

	return Response{
		Error:  msg,
		Fields: te.Fields,
	}
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}
