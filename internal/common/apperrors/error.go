// Package apperrors provides chainable application errors that carry an HTTP
// status code alongside the message. Errors created from a template error keep
// compatibility with errors.Is / errors.As across the whole chain, which lets
// callers match on coarse kinds (storage, validation) while handlers surface
// the most specific message.
package apperrors

// Error is the interface implemented by all application errors. Methods that
// derive new errors return Error so call sites can chain them.
type Error interface {
	error
	Unwrap() error // supports errors.Is / errors.As

	New(msg string) Error                  // derives a fresh error kind using the current one as template
	Msg(msg string) Error                  // derives an error with a new message, wrapping the current one
	MsgErr(msg string, err ...error) Error // derives an error with a message plus extra wrapped errors
	Err(err ...error) Error                // attaches additional errors, keeping the current message
	SetExpandError(bool) Error             // controls whether ErrorAll includes wrapped errors
	SetStatusCode(int) Error               // sets the HTTP status code reported for this error
	StatusCode() int                       // returns the HTTP status code
	ErrorAll() string                      // full message, including wrapped errors when expansion is on
	UnwrapAll() []error                    // all wrapped errors
}
