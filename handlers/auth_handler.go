package handlers

import (
	"errors"
	"fmt"

	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/notifications"
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Surname  string `json:"surname" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=student teacher"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	Country  string `json:"country" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func RegisterUser(c *fiber.Ctx) error {
	var req RegisterRequest
	if ok, err := parse(c, &req); !ok {
		return err
	}

	user, err := services.SignUp(c.UserContext(), services.SignUpInput{
		FullName: req.FullName,
		Surname:  req.Surname,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
		City:     req.City,
		State:    req.State,
		Country:  req.Country,
	})
	if err != nil {
		var cerr *services.ConflictError
		if errors.As(err, &cerr) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": services.HumanizeAuthError(err)})
		}
		return fail(c, err)
	}

	token, err := services.IssueToken(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create token"})
	}

	go notifications.SendEmail(user.FullName, user.Email, "Welcome!",
		fmt.Sprintf("<h1>Welcome, %s!</h1><p>Thank you for registering as a %s.</p>", user.FullName, user.Role))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token, "user": user})
}

func LoginUser(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := parse(c, &req); !ok {
		return err
	}

	user, err := services.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}

	token, err := services.IssueToken(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create token"})
	}

	return c.JSON(fiber.Map{"token": token, "user": user})
}

// Logout releases every live subscription of the caller. Tokens are
// stateless, so the client discards its own copy.
func Logout(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	released := services.SignOut(userID)
	return c.JSON(fiber.Map{"message": "Signed out", "released_subscriptions": released})
}

// GetSession resolves the caller's account. from is the page the client is
// on; a redirect is suggested only when it is a public entry point.
func GetSession(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	account, err := services.Resolve(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}

	body := fiber.Map{
		"role":    account.Profile().Role,
		"home":    services.HomePath(account),
		"account": account,
	}
	if to, ok := services.LandingRedirect(c.Query("from", "/"), account); ok {
		body["redirect"] = to
	}
	return c.JSON(body)
}
