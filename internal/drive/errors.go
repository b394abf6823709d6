package drive

import (
	"errors"

	"google.golang.org/api/googleapi"
)

// IsTransient reports whether a remote failure is expected to resolve itself
// if retried after a delay. Drive reports rate limiting as 403 or 429 and
// server-side unavailability as 500 or 503; everything else is permanent.
func IsTransient(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 403, 429, 500, 503:
		return true
	}
	return false
}

// IsNotFound reports whether the remote rejected the request because the
// entry does not exist or is not shared with the credentials in use.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 404
}
