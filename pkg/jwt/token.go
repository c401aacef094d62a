package jwtPkg

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ProjectAssistant/internal/entity"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret = "JWT_ACCESS_TOKEN_SECRET"
	OperatorKey       = "operator"
)

var (
	ErrEmptyHeader      = errors.New("empty Authorization header")
	ErrInvalidFormat    = errors.New("invalid Authorization format")
	ErrEmptyToken       = errors.New("empty token")
	ErrSecretNotSet     = errors.New("JWT secret not configured")
	ErrMissingClaims    = errors.New("token claims are missing required fields")
	ErrOperatorNotFound = errors.New("operator not found in request")
)

// Sign issues an HS256 operator token with the secret from
// JWT_ACCESS_TOKEN_SECRET.
func Sign(operator entity.Operator, ttl time.Duration) (string, int64, error) {
	expiredAt := time.Now().Add(ttl).Unix()

	secret := os.Getenv(AccessTokenSecret)
	if secret == "" {
		return "", 0, ErrSecretNotSet
	}

	claims := jwt.MapClaims{
		"exp":  expiredAt,
		"id":   operator.ID,
		"name": operator.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return accessToken, expiredAt, nil
}

func VerifyTokenHeader(c *fiber.Ctx, secretEnvKey string) (entity.Operator, error) {
	header := c.Get("Authorization")
	if header == "" {
		return entity.Operator{}, ErrEmptyHeader
	}

	parts := strings.Split(header, "Bearer ")
	if len(parts) != 2 {
		return entity.Operator{}, ErrInvalidFormat
	}

	return VerifyToken(parts[1], secretEnvKey)
}

// VerifyToken parses a raw token. The state websocket passes it as a query
// parameter since browsers cannot set headers on upgrade.
func VerifyToken(raw, secretEnvKey string) (entity.Operator, error) {
	accessToken := strings.TrimSpace(raw)
	if accessToken == "" {
		return entity.Operator{}, ErrEmptyToken
	}

	secret := os.Getenv(secretEnvKey)
	if secret == "" {
		return entity.Operator{}, ErrSecretNotSet
	}

	token, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return entity.Operator{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entity.Operator{}, ErrMissingClaims
	}

	id, _ := claims["id"].(string)
	name, _ := claims["name"].(string)
	if id == "" {
		return entity.Operator{}, ErrMissingClaims
	}

	return entity.Operator{ID: id, Name: name}, nil
}

func GetOperator(c *fiber.Ctx) (entity.Operator, error) {
	operator, ok := c.Locals(OperatorKey).(entity.Operator)
	if !ok {
		return entity.Operator{}, ErrOperatorNotFound
	}
	return operator, nil
}
