package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ResponseError is a non-2xx response from a downstream service.
type ResponseError struct {
	Service string
	Status  int
	Code    string
	Message string
}

func (e *ResponseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s returned status %d (%s): %s", e.Service, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Message)
}

// ClientError reports whether the downstream rejected the request itself.
func (e *ResponseError) ClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// errorBody matches both {"error":{"code","message"}} envelopes and the flat
// {"error":"..."} shape some APIs use.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

// ParseResponseError consumes and closes resp.Body and returns a *ResponseError.
// Call it only for non-2xx responses.
func ParseResponseError(resp *http.Response, service string) error {
	defer drain(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &ResponseError{Service: service, Status: resp.StatusCode, Message: "unreadable body: " + err.Error()}
	}

	re := &ResponseError{Service: service, Status: resp.StatusCode, Message: string(raw)}

	var body errorBody
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var structured struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		var flat string
		switch {
		case json.Unmarshal(body.Error, &structured) == nil && structured.Message != "":
			re.Code, re.Message = structured.Code, structured.Message
		case json.Unmarshal(body.Error, &flat) == nil:
			re.Message = flat
		}
	}
	if re.Message == "" {
		re.Message = http.StatusText(resp.StatusCode)
	}
	return re
}
