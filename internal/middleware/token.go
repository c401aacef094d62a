package middleware

import (
	"strings"

	jwtPkg "ProjectAssistant/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret = jwtPkg.AccessTokenSecret
	TokenQueryParam   = "token"
)

type tokenMiddleware struct {
	secretEnvKey string
}

func newTokenMiddleware(secretEnvKey string) *tokenMiddleware {
	return &tokenMiddleware{secretEnvKey: secretEnvKey}
}

// NewTokenMiddleware accepts a bearer header, or a token query parameter on
// websocket upgrades.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	requestID := m.GetRequestID(ctx)
	authHeader := ctx.Get("Authorization")

	var raw string
	switch {
	case strings.HasPrefix(authHeader, "Bearer "):
		raw = strings.TrimPrefix(authHeader, "Bearer ")
	case authHeader == "" && ctx.Query(TokenQueryParam) != "":
		raw = ctx.Query(TokenQueryParam)
	default:
		m.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"client_ip":  ctx.IP(),
		}).Warn("Authorization header missing or malformed")
		return unauthorized(ctx)
	}

	operator, err := jwtPkg.VerifyToken(raw, m.token.secretEnvKey)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"error":      err.Error(),
		}).Warn("Token verification failed")
		return unauthorized(ctx)
	}

	ctx.Locals(jwtPkg.OperatorKey, operator)

	m.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"operator_id": operator.ID,
	}).Debug("Authentication successful")
	return ctx.Next()
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized, access token invalid or expired",
	})
}
