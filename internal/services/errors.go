package services

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrQuotaExhausted and ErrUnauthorized abort a run.
	ErrQuotaExhausted = errors.New("youtube quota exhausted")
	ErrUnauthorized   = errors.New("youtube credential rejected")

	ErrVideoNotFound     = errors.New("video not found")
	ErrCommentsDisabled  = errors.New("comments disabled")
	ErrForbidden         = errors.New("access to resource forbidden")
	ErrMissingCredential = errors.New("youtube api key is not configured")
	ErrNoPending         = errors.New("no pending records")
	ErrRunInProgress     = errors.New("a run of this kind is already in progress")
)

// IsFatal reports whether err must abort the current run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrQuotaExhausted) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrMissingCredential)
}

// classifyAPIError maps a Data API error onto the package sentinels.
// Errors it does not recognise are returned unchanged.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	for _, item := range gerr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded":
			return &apiError{sentinel: ErrQuotaExhausted, cause: err}
		case "keyInvalid", "keyExpired", "accessNotConfigured", "ipRefererBlocked":
			return &apiError{sentinel: ErrUnauthorized, cause: err}
		case "commentsDisabled":
			return &apiError{sentinel: ErrCommentsDisabled, cause: err}
		case "forbidden":
			// Per resource: a single video's comment threads or details can be unreadable.
			return &apiError{sentinel: ErrForbidden, cause: err}
		case "videoNotFound", "notFound":
			return &apiError{sentinel: ErrVideoNotFound, cause: err}
		}
	}

	switch gerr.Code {
	case http.StatusUnauthorized:
		return &apiError{sentinel: ErrUnauthorized, cause: err}
	case http.StatusNotFound:
		return &apiError{sentinel: ErrVideoNotFound, cause: err}
	}
	return err
}

// apiError keeps the upstream error text while matching a sentinel.
type apiError struct {
	sentinel error
	cause    error
}

func (e *apiError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *apiError) Is(target error) bool {
	return target == e.sentinel
}

func (e *apiError) Unwrap() error {
	return e.cause
}

// ValidationError carries per-field messages for the HTTP layer.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }
