// Package apperr defines the sum-type result taxonomy returned by the
// accessor and its derived query routers. Every accessor operation
// returns a Status alongside its value; the API layer is the only
// place a Status is translated into an HTTP code.
package apperr

import "net/http"

type Status int

const (
	Success Status = iota
	AlreadyExists
	DoesNotExist
	BadRequest
	Disqualified
	TooManyArtifacts
	Deferred
	InternalError
)

func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case DoesNotExist:
		return "DOES_NOT_EXIST"
	case BadRequest:
		return "BAD_REQUEST"
	case Disqualified:
		return "DISQUALIFIED"
	case TooManyArtifacts:
		return "TOO_MANY_ARTIFACTS"
	case Deferred:
		return "DEFERRED"
	case InternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// HTTPStatus maps a Status onto its HTTP code. created selects between
// 200 and 201 for the Success case (register uses 201, everything else
// uses 200).
func (s Status) HTTPStatus(created bool) int {
	switch s {
	case Success:
		if created {
			return http.StatusCreated
		}
		return http.StatusOK
	case AlreadyExists:
		return http.StatusConflict
	case DoesNotExist:
		return http.StatusNotFound
	case BadRequest:
		return http.StatusBadRequest
	case Disqualified:
		return http.StatusFailedDependency
	case TooManyArtifacts:
		return http.StatusRequestEntityTooLarge
	case Deferred:
		return http.StatusAccepted
	case InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error implements error so a Status can be returned/wrapped wherever
// Go idiom expects an error, without losing the taxonomy.
type Error struct {
	Status Status
	Msg    string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Status.String()
	}
	return e.Status.String() + ": " + e.Msg
}

func New(status Status, msg string) *Error {
	return &Error{Status: status, Msg: msg}
}
