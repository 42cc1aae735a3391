package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"backend/internal/apperr"
)

// callerKey is the Fiber locals key carrying the resolved caller identity.
const callerKey = "caller"

// CallerID retrieves the authenticated caller identity set by RequireAuth,
// or "" when the request is unauthenticated.
func CallerID(c *fiber.Ctx) string {
	caller, _ := c.Locals(callerKey).(string)
	return caller
}

// RequireAuth verifies the bearer token and stores the caller identity in
// the request locals. Identity resolution is a boundary precondition:
// handlers behind this middleware can rely on a non-empty caller and no
// other shared auth state exists.
func RequireAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return apperr.New(apperr.Unauthenticated, "authorization header is required")
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return apperr.New(apperr.Unauthenticated, "authorization header must be 'Bearer <token>'")
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return apperr.New(apperr.Unauthenticated, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return apperr.New(apperr.Unauthenticated, "invalid token claims")
		}

		// The identity provider puts the opaque user ID in the subject claim.
		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			return apperr.New(apperr.Unauthenticated, "token missing subject")
		}

		c.Locals(callerKey, sub)
		return c.Next()
	}
}
