package restapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/bookverse/borrowledger/core"
)

// Error codes the API may put into ErrorResponse.Code.
const (
	CodeOutOfStock      = "out_of_stock"
	CodeInvalidDate     = "invalid_date"
	CodeNotFound        = "not_found"
	CodeUnauthenticated = "unauthenticated"
	CodeInvalidBook     = "invalid_book"
)

// StatusError is a non-2xx response. Its text is the server's message.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return http.StatusText(e.StatusCode)
}

func errorFromResponse(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var body ErrorResponse
	if err := jsoniter.ConfigFastest.Unmarshal(raw, &body); err == nil {
		statusErr.Code = body.Code
		statusErr.Message = strings.TrimSpace(body.Message)
	} else {
		statusErr.Message = strings.TrimSpace(string(raw))
	}

	return errors.Join(classify(statusErr), statusErr)
}

func classify(statusErr *StatusError) error {
	switch statusErr.Code {
	case CodeOutOfStock:
		return core.ErrOutOfStock
	case CodeInvalidDate:
		return core.ErrInvalidDate
	case CodeNotFound:
		return core.ErrNotFound
	case CodeUnauthenticated:
		return core.ErrUnauthenticated
	case CodeInvalidBook:
		return core.ErrInvalidBook
	}

	switch statusErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.ErrUnauthenticated
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusConflict:
		return core.ErrOutOfStock
	case http.StatusUnprocessableEntity:
		return core.ErrInvalidDate
	default:
		return core.ErrNetwork
	}
}
