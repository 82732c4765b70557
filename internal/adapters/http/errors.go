package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/core/polyline"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, malformed_encoding, not_found, bad_gateway, internal_error
	Message   string `json:"message"` // Human-readable message
	Offset    *int   `json:"offset,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errMalformed returns a 400 carrying the offending byte offset.
func errMalformed(c *fiber.Ctx, err error) error {
	apiErr := APIError{
		Status:  fiber.StatusBadRequest,
		Code:    "malformed_encoding",
		Message: err.Error(),
	}
	apiErr.RequestID, _ = c.Locals("requestid").(string)
	var me *polyline.MalformedError
	if errors.As(err, &me) {
		offset := me.Offset
		apiErr.Offset = &offset
	}
	return c.Status(fiber.StatusBadRequest).JSON(apiErr)
}

// errFromDomain maps core error kinds onto HTTP statuses.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, polyline.ErrMalformedEncoding):
		return errMalformed(c, err)
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrRetrievalFailure), errors.Is(err, domain.ErrUnexpectedResponseShape):
		return newError(c, fiber.StatusBadGateway, "bad_gateway", err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}
