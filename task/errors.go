package task

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a pipeline failure for HTTP mapping and logging.
type ErrorKind string

const (
	KindInputValidation       ErrorKind = "input_validation"
	KindCorruptArchive        ErrorKind = "corrupt_archive"
	KindMissingAudio          ErrorKind = "missing_audio"
	KindMissingImages         ErrorKind = "missing_images"
	KindProbeFailure          ErrorKind = "probe_failure"
	KindTranscodeFailed       ErrorKind = "transcode_failed"
	KindTranscodeTimeout      ErrorKind = "transcode_timeout"
	KindTranscodeUnresponsive ErrorKind = "transcode_unresponsive"
	KindInternal              ErrorKind = "internal"
)

// maxUserMessageLen bounds what clients ever see of a failure reason.
const maxUserMessageLen = 200

// Error carries a classified failure through the pipeline. UserMessage is safe
// for clients; the wrapped error keeps internal detail for logs only.
type Error struct {
	Kind        ErrorKind
	UserMessage string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.UserMessage
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error with a bounded user-facing message.
func NewError(kind ErrorKind, userMessage string, err error) *Error {
	return &Error{Kind: kind, UserMessage: Truncate(userMessage, maxUserMessageLen), Err: err}
}

// HTTPStatus maps the kind to the response code for the upload endpoint.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInputValidation, KindCorruptArchive, KindMissingAudio, KindMissingImages:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AsError extracts a *Error from err, wrapping anything unclassified as internal.
func AsError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return NewError(KindInternal, "An unexpected error occurred while processing the file.", err)
}

// Truncate cuts s to at most n bytes, appending an ellipsis when it was longer.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
