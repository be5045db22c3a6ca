package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gestia/gestia/internal/domain"
)

// mapDomainError translates a domain error into the matching HTTP problem.
// Unknown errors become an opaque 500 carrying fallback as the detail.
func mapDomainError(err error, fallback string) error {
	var (
		conflict *domain.ActiveSprintConflictError
		state    *domain.InvalidStateError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("not found")
	case errors.As(err, &conflict):
		return huma.Error409Conflict(conflict.Error())
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("conflicting state")
	case errors.As(err, &state):
		return huma.Error400BadRequest(state.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError(fallback, err)
	}
}
