package transport

import (
	"net/http"
	"strconv"

	"github.com/and161185/vidvote/internal/errs"
)

// HTTPError is returned for any non-2xx response. Its message is the
// response body text, or "HTTP <status>" when the body is empty.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return "HTTP " + strconv.Itoa(e.Status)
}

// Is maps well-known statuses onto the shared sentinels so callers can use errors.Is.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case errs.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case errs.ErrNotFound:
		return e.Status == http.StatusNotFound
	case errs.ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}
