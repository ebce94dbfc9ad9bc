package middleware

import (
	"strings"

	config "github.com/anjiri1684/tutor_booking/configs"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/utils"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
)

func Protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(config.Config("JWT_SECRET")),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if strings.EqualFold(err.Error(), "Missing or malformed JWT") {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// RoleRequired lets the request through only when the token's role is one
// of roles. It must run after Protected.
func RoleRequired(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := utils.CurrentRole(c)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: " + string(roles[0]) + " access required",
		})
	}
}

func AdminRequired() fiber.Handler { return RoleRequired(models.RoleAdmin) }
func TeacherRequired() fiber.Handler { return RoleRequired(models.RoleTeacher) }
func StudentRequired() fiber.Handler { return RoleRequired(models.RoleStudent) }
