// internal/fetch/errors.go
package fetch

import "fmt"

// RequestError carries the offending status and body of a failed HTTP
// request for diagnostics.
type RequestError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("request %s failed with status %d: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("request %s failed: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
