package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"updown/internal/service"
)

// serviceError translates the service error taxonomy into HTTP statuses:
// bad input is 400, unknown rooms 404, state conflicts 409, a missing price
// feed 502. Anything unrecognized is treated as a collaborator failure.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidParameters),
		errors.Is(err, service.ErrStakeTooLow):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrRoomNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrAlreadyStarted),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrRoomNotAcceptingPredictions),
		errors.Is(err, service.ErrDuplicatePrediction),
		errors.Is(err, service.ErrNotCompleted),
		errors.Is(err, service.ErrNotSettled),
		errors.Is(err, service.ErrNotAWinner):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrPriceUnavailable):
		Error(c, http.StatusBadGateway, err.Error(), nil)
	case errors.Is(err, service.ErrInvariantViolation):
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}
