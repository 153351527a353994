package api

import (
	"errors"
	"log"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/modules/auth"
	"github.com/example/shopping-list/modules/importer"
	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a domain, importer or auth error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, product.ErrEmptyName),
		errors.Is(err, product.ErrNoCategorySelected),
		errors.Is(err, category.ErrUnknownCategory),
		errors.Is(err, importer.ErrInvalidBarcode),
		errors.Is(err, importer.ErrNoImage),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrDisplayNameTooLong):
		return fiber.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, product.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, auth.ErrAccountExists):
		return fiber.StatusConflict
	case errors.Is(err, importer.ErrPhotoTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, importer.ErrServiceUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, product.ErrExternalService):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// kindFor names the error in the response body.
func kindFor(err error) string {
	if code := auth.CodeOf(err); code != auth.CodeInternal {
		return code
	}
	return importer.KindOf(err)
}

// writeError replies with the status and kind of err. Internal details
// are logged, not returned.
func writeError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("[api] Internal error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(ErrorResponse{
			Error:   kindFor(err),
			Message: "An internal error occurred",
		})
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:   kindFor(err),
		Message: err.Error(),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// customErrorHandler handles errors returned by Fiber itself.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
