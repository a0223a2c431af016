package commerce

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport marks failures where no HTTP response was received
// (dial, timeout, cancelled context) or the body could not be read.
var ErrTransport = errors.New("commerce transport failure")

// ErrMalformedResponse marks 2xx responses whose body does not match the contract.
var ErrMalformedResponse = errors.New("malformed commerce response")

// APIError is returned for every non-2xx response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from an APIError anywhere in the chain.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// IsValidation reports a business rejection of the request payload,
// e.g. adding more items than are in stock.
func IsValidation(err error) bool {
	code, ok := StatusCode(err)
	return ok && (code == http.StatusBadRequest || code == http.StatusUnprocessableEntity)
}

func IsConflict(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusConflict
}

func IsNotFound(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusNotFound
}
