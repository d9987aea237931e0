package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"qrverify/internal/http/middleware"
	"qrverify/internal/logging"
)

// errorPayload is the body of every framework level error.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorText struct{ code, message string }

var statusErrors = map[int]errorText{
	fiber.StatusBadRequest:            {"BAD_REQUEST", "bad request"},
	fiber.StatusNotFound:              {"NOT_FOUND", "resource not found"},
	fiber.StatusMethodNotAllowed:      {"METHOD_NOT_ALLOWED", "method not allowed"},
	fiber.StatusRequestTimeout:        {"REQUEST_TIMEOUT", "request timed out"},
	fiber.StatusRequestEntityTooLarge: {"PAYLOAD_TOO_LARGE", "request body too large"},
	fiber.StatusUnsupportedMediaType:  {"UNSUPPORTED_MEDIA_TYPE", "unsupported media type"},
	fiber.StatusTooManyRequests:       {"TOO_MANY_REQUESTS", "too many requests"},
}

var internalError = errorText{"INTERNAL_ERROR", "internal server error"}

// writeError writes the error envelope. message must be safe to show to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// ErrorHandler maps errors escaping the handlers to the envelope above.
// Unknown errors become 500 and are logged with the request ID; their text
// never reaches the client.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logging.Discard()
	}
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		text, ok := statusErrors[status]
		if !ok {
			text = internalError
		}
		if status >= fiber.StatusInternalServerError {
			log.ErrorContext(c.UserContext(), "request failed",
				"request_id", middleware.RequestIDFrom(c),
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err.Error(),
			)
		}
		return writeError(c, status, text.code, text.message)
	}
}
