package httpadapter

import (
	"net/http"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

// mapErrorToHTTPStatus checks the more specific kinds first: a dispatch
// failure may wrap a storage not-found, an invalid key or a temporary
// provider error, and still answers 502.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrStatusNotRecorded):
		return http.StatusMultiStatus
	case domain.IsKind(err, domain.ErrPrecondition), domain.IsKind(err, domain.ErrRejected):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrDispatchFailed):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrInvalidDate):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrAliasExhausted):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
