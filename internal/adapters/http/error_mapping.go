package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

var errNoFlushedBatch = errors.New("no flushed batch for owner")

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrEmptyName),
		domain.IsKind(err, domain.ErrValidation),
		domain.IsKind(err, domain.ErrInvalidIdentity):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrBatchNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrWorkflowViolation):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrBufferUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
