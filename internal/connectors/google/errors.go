package google

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Errors WrapError maps Custom Search API failures to.
var (
	ErrUnauthorized  = errors.New("google: unauthorised (invalid api key)")
	ErrForbidden     = errors.New("google: forbidden (custom search api not enabled)")
	ErrNotFound      = errors.New("google: search engine not found")
	ErrRateLimited   = errors.New("google: rate limit exceeded")
	ErrQuotaExceeded = errors.New("google: quota exceeded")
)

// IsUnauthorized reports a rejected API key.
func IsUnauthorized(err error) bool { return hasStatus(err, ErrUnauthorized, http.StatusUnauthorized) }

// IsForbidden reports a key without access to the Custom Search API.
func IsForbidden(err error) bool { return hasStatus(err, ErrForbidden, http.StatusForbidden) }

// IsNotFound reports an unknown search engine ID.
func IsNotFound(err error) bool { return hasStatus(err, ErrNotFound, http.StatusNotFound) }

// IsRateLimited reports a 429 from the API.
func IsRateLimited(err error) bool {
	return hasStatus(err, ErrRateLimited, http.StatusTooManyRequests)
}

// hasStatus matches either the mapped sentinel or a raw googleapi error
// carrying code.
func hasStatus(err, sentinel error, code int) bool {
	if errors.Is(err, sentinel) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

// WrapError maps a googleapi error onto the package sentinels. Other
// errors, including nil, are returned unchanged.
func WrapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	if isQuotaReason(gerr) {
		return ErrQuotaExceeded
	}

	switch gerr.Code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return err
	}
}

// isQuotaReason reports whether the API rejected the call for quota.
// Custom Search signals this with a 403 or 429 carrying a limit reason.
func isQuotaReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "dailyLimitExceeded", "quotaExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}
