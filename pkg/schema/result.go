package schema

import "errors"

// ResultStatus is the terminal state of one action within a query.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// ErrorDetail is the serializable error carried by a failed ActionResult.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ActionResult is the outcome of one extracted action.
type ActionResult struct {
	Action string       `json:"action"`
	Status ResultStatus `json:"status"`
	Output any          `json:"output,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// Succeeded returns a success result.
func Succeeded(action string, output any) ActionResult {
	return ActionResult{Action: action, Status: StatusSuccess, Output: output}
}

// Failed converts err into an error result. Errors without a code are
// reported as invocation faults.
func Failed(action string, err error) ActionResult {
	code, msg := ErrCodeInvocationFault, err.Error()
	var e *Error
	if errors.As(err, &e) {
		code, msg = e.Code, e.Message
	}
	return ActionResult{
		Action: action,
		Status: StatusError,
		Error:  &ErrorDetail{Code: code, Message: msg},
	}
}

// OK reports whether the action succeeded.
func (r ActionResult) OK() bool {
	return r.Status == StatusSuccess
}

// QueryResult is the terminal artifact of one query.
type QueryResult struct {
	QueryID string         `json:"query_id,omitempty"`
	Results []ActionResult `json:"results"`
	Message string         `json:"message,omitempty"`
}

// Summary counts successful and failed results.
func (q *QueryResult) Summary() (succeeded, failed int) {
	for _, r := range q.Results {
		if r.OK() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
