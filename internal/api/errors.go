package api

import (
	"errors"
	"net/http"

	"github.com/clickplanet/clickplanet/internal/apierr"
)

func writeInvalidArgument(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, string(apierr.InvalidArgument), message)
}

// writeAPIError maps the component error taxonomy to HTTP status codes.
func writeAPIError(w http.ResponseWriter, err error) {
	if err == nil {
		WriteError(w, http.StatusInternalServerError, string(apierr.Internal), "internal server error")
		return
	}

	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		WriteError(w, apiErr.Code.HTTPStatus(), string(apiErr.Code), apiErr.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, string(apierr.Internal), err.Error())
}
