package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"order-lifecycle-service/internal/middleware"
	"order-lifecycle-service/internal/models"
)

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// mustActor pulls the authenticated actor from the context, aborting with
// 401 if the auth middleware did not run
func mustActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: "Missing user identity"})
		return models.Actor{}, false
	}
	return actor, true
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrReturnNotFound),
		errors.Is(err, models.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not Found", Message: err.Error()})
		return
	}

	var invalidTransition *models.InvalidTransitionError
	if errors.As(err, &invalidTransition) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Invalid Transition", Message: err.Error()})
		return
	}

	var notCancellable *models.NotCancellableError
	if errors.As(err, &notCancellable) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Not Cancellable", Message: err.Error()})
		return
	}

	var windowExpired *models.ReturnWindowExpiredError
	if errors.As(err, &windowExpired) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "Return Window Expired", Message: err.Error()})
		return
	}

	var concurrent *models.ConcurrentModificationError
	if errors.As(err, &concurrent) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Conflict", Message: err.Error()})
		return
	}

	var unauthorized *models.UnauthorizedError
	if errors.As(err, &unauthorized) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Forbidden", Message: err.Error()})
		return
	}

	var alreadyRefunded *models.RefundAlreadyIssuedError
	if errors.As(err, &alreadyRefunded) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Refund Already Issued", Message: err.Error()})
		return
	}

	var validation *models.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Validation Failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error", Message: err.Error()})
}
