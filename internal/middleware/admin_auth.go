package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
)

// RequireAdminKey guards admin routes with a bearer key sent as
// "Authorization: Bearer <key>".
func RequireAdminKey(key string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		Validator: func(c *fiber.Ctx, presented string) (bool, error) {
			if key != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
				return true, nil
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
	})
}
