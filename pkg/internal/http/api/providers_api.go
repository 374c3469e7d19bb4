package api

import (
	"git.solsynth.dev/hypernet/attendance/pkg/internal/provider"
	"github.com/gofiber/fiber/v2"
)

func ping(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func listProviders(c *fiber.Ctx) error {
	return c.JSON(provider.GetSupportedProviders())
}
