package downstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrTimeout     = errors.New("downstream_timeout")
	ErrUnavailable = errors.New("downstream_unavailable")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream error [%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsUnauthorized reports a backend rejection of the session token.
func IsUnauthorized(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
	}
	return false
}

// decodeError reads the backend error body. The backend answers either
// {"error": {"code", "message"}}, {"error": "text"} or {"message": "text"}.
func decodeError(resp *http.Response) error {
	se := &StatusError{
		StatusCode: resp.StatusCode,
		Code:       "downstream_error",
		Message:    fmt.Sprintf("unexpected status: %d", resp.StatusCode),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return se
	}

	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return se
	}

	var text string
	var structured struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	switch {
	case len(body.Error) > 0 && json.Unmarshal(body.Error, &text) == nil && text != "":
		se.Message = text
	case len(body.Error) > 0 && json.Unmarshal(body.Error, &structured) == nil && structured.Code != "":
		se.Code = structured.Code
		se.Message = structured.Message
	case body.Message != "":
		se.Message = body.Message
	}
	return se
}
