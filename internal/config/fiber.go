package config

import (
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger, appName string) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:               appName,
			BodyLimit:             1 * 1024 * 1024,
			DisableStartupMessage: logger.GetLevel() < logrus.DebugLevel,
			StrictRouting:         true,
			CaseSensitive:         true,
			JSONEncoder:           jsoniter.Marshal,
			JSONDecoder:           jsoniter.Unmarshal,
		})

	return app
}
