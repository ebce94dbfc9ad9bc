package handlers

import (
	"errors"
	"log"

	"github.com/anjiri1684/tutor_booking/notifications"
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/anjiri1684/tutor_booking/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

// parse decodes and validates the request body into dst. It writes the 400
// response itself and returns false when the body is unusable.
func parse(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return true, nil
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := utils.CurrentUserID(c)
	if err != nil {
		return uuid.Nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	return id, nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func badID(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid " + what + " ID"})
}

func statusFor(err error) int {
	var (
		verr *services.ValidationError
		terr *services.InvalidTransitionError
		nerr *services.NotFoundError
		cerr *services.ConflictError
		perr *services.PermissionError
		serr *services.StoreError
	)
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest
	case errors.As(err, &nerr):
		return fiber.StatusNotFound
	case errors.As(err, &terr), errors.As(err, &cerr):
		return fiber.StatusConflict
	case errors.As(err, &perr):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrInconsistentSession), errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.As(err, &serr):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// fail maps a domain error to its HTTP status.
func fail(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	body := fiber.Map{"error": err.Error()}
	switch code {
	case fiber.StatusUnauthorized:
		body["error"] = services.HumanizeAuthError(err)
		if errors.Is(err, services.ErrInconsistentSession) {
			body["signed_out"] = true
		}
	case fiber.StatusBadGateway, fiber.StatusInternalServerError:
		log.Printf("🔥 %s %s failed: %v", c.Method(), c.Path(), err)
		body["error"] = "Something went wrong, please try again"
		body["retryable"] = true
	}
	return c.Status(code).JSON(body)
}

// failAction is fail for user actions: the outcome is also shown as a toast.
func failAction(c *fiber.Ctx, userID uuid.UUID, message string, err error) error {
	if statusFor(err) == fiber.StatusBadRequest || statusFor(err) == fiber.StatusConflict {
		message = err.Error()
	}
	notifications.Toasts.Error(userID, message)
	return fail(c, err)
}

func toastSuccess(userID uuid.UUID, message string) {
	notifications.Toasts.Success(userID, message)
}
