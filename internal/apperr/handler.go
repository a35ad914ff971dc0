package apperr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// GlobalErrorHandler renders errors as JSON. Unexpected errors are logged
// and answered with a generic message.
func GlobalErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, errorBody{Error: fmt.Sprintf("%v", he.Message)})
			return
		}

		kind := Kind(err)
		switch kind {
		case "validation":
			var ve *ValidationError
			errors.As(err, &ve)
			_ = c.JSON(http.StatusBadRequest, errorBody{Error: ve.Message, Kind: kind})
		case "cancellation":
			_ = c.JSON(http.StatusServiceUnavailable, errorBody{Error: err.Error(), Kind: kind})
		default:
			slog.Error("Unhandled error", "error", err, "kind", kind, "uri", c.Request().RequestURI)
			_ = c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
		}
	}
}
