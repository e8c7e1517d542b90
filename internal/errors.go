package internal

import (
	"errors"
	"fmt"

	"github.com/frankli0324/go-httb/internal/model"
	"github.com/frankli0324/go-httb/internal/session"
	"github.com/frankli0324/go-httb/internal/transport"
)

// errorResponse converts err into a synthetic response. The body reads
// "category[code]: description", followed by "::phase" when the phase
// is known.
func errorResponse(err error) *model.Response {
	phase := ""
	var pe *session.PhaseError
	if errors.As(err, &pe) {
		phase, err = pe.Phase, pe.Err
	}
	f := transport.Classify(err)
	body := fmt.Sprintf("%s[%d]: %s", f.Category, model.InternalErrorOffset+f.Value, f.Message)
	if phase != "" {
		body += "::" + phase
	}
	return model.ErrorResponse(f.Value, body)
}
