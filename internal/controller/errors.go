package controller

import (
	"errors"
	"net/http"
	"strings"

	"facilitymonitor/internal/models"
	"facilitymonitor/internal/service"
	"facilitymonitor/internal/utils"
)

// respondWithServiceError maps service errors onto the API error taxonomy.
// Anything unrecognised is a server fault described by faultMessage.
func respondWithServiceError(w http.ResponseWriter, err error, faultMessage string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		utils.RespondWithError(w, models.InvalidCredentialsError())
	case errors.Is(err, service.ErrResetTokenInvalid):
		utils.RespondWithError(w, models.InvalidResetTokenError())
	case errors.Is(err, service.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeBadRequest, msg, nil, http.StatusBadRequest))
	default:
		utils.RespondWithError(w, models.ServerFaultError(faultMessage, err))
	}
}
