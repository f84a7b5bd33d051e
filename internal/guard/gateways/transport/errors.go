package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/haukened/navguard/internal/guard/domain"
	"github.com/haukened/navguard/internal/guard/repos/state"
	"github.com/haukened/navguard/internal/guard/services/interceptor"
)

// errBadRequest marks request decoding and path parameter failures.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps an error from the coordinator onto an HTTP status and the
// message returned to the client. Order matters: ErrSettingsSave wraps
// validation and persistence errors alike.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, interceptor.ErrScanIncomplete):
		return http.StatusBadGateway, interceptor.ErrScanIncomplete.Error()
	case errors.Is(err, interceptor.ErrSettingsSave) && errors.Is(err, domain.ErrInvalidSettings):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, interceptor.ErrSettingsSave):
		return http.StatusInternalServerError, interceptor.ErrSettingsSave.Error()
	case errors.Is(err, interceptor.ErrUnknownIntercept), errors.Is(err, interceptor.ErrUnknownTab):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, interceptor.ErrSuperseded):
		return http.StatusConflict, err.Error()
	case errors.Is(err, state.ErrInvalidEntry):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
