package ambar

import "errors"

// Ambar error policies, see https://docs.ambar.cloud/#Data%20Destinations
const (
	PolicyMustRetry = "must_retry"
	PolicyKeepGoing = "keep_going"
)

// Response is the body Ambar expects back for every delivery.
// Ambar reads the outcome from the body, the status code is always 200.
type Response struct {
	Result Result `json:"result"`
}

// Result carries either Success or Error
type Result struct {
	Success *struct{} `json:"success,omitempty"`
	Error   *Failure  `json:"error,omitempty"`
}

// Failure tells Ambar how to treat a row that could not be projected
type Failure struct {
	Policy      string `json:"policy"`
	Class       string `json:"class"`
	Description string `json:"description"`
}

// Outcome maps the error returned by Project to the response for Ambar.
// nil and ErrNoRetry acknowledge the row, ErrKeepItGoing skips it and
// anything else asks for redelivery.
func Outcome(err error) Response {
	switch {
	case err == nil, errors.Is(err, ErrNoRetry):
		return Response{Result: Result{Success: &struct{}{}}}

	case errors.Is(err, ErrKeepItGoing):
		return failure(PolicyKeepGoing, err)

	default:
		return failure(PolicyMustRetry, err)
	}
}

func failure(policy string, err error) Response {
	class := "projection"

	if errors.Is(err, ErrRetry) {
		class = "delivery"
	}

	return Response{
		Result: Result{
			Error: &Failure{
				Policy:      policy,
				Class:       class,
				Description: err.Error(),
			},
		},
	}
}

// Acknowledged reports whether Ambar will consider the row done
func (r Response) Acknowledged() bool {
	return r.Result.Success != nil
}
