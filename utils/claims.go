package utils

import (
	"errors"

	"github.com/anjiri1684/tutor_booking/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var ErrNoPrincipal = errors.New("no authenticated user on this request")

func claims(c *fiber.Ctx) jwt.MapClaims {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil
	}
	mc, _ := token.Claims.(jwt.MapClaims)
	return mc
}

// CurrentUserID returns the user id carried by the request's JWT.
func CurrentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := claims(c)["user_id"].(string)
	if raw == "" {
		return uuid.Nil, ErrNoPrincipal
	}
	return uuid.Parse(raw)
}

func CurrentRole(c *fiber.Ctx) models.Role {
	role, _ := claims(c)["role"].(string)
	return models.Role(role)
}
