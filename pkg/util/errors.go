package util

import (
	"github.com/illustraitor/cli/pkg/illustraitor"
)

// CleanedUpAPIError renders an error from the image service as the single
// status line a user should see, followed by a suggested next step.
type CleanedUpAPIError struct {
	Err  error
	Hint string
}

func (e CleanedUpAPIError) Error() string {
	msg := illustraitor.UserMessage(e.Err)
	if e.Hint != "" {
		msg += "\n" + e.Hint
	}
	return msg
}

func (e CleanedUpAPIError) Unwrap() error { return e.Err }
