package exts

import (
	"errors"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/provider"
	"github.com/gofiber/fiber/v2"
)

// ProviderError maps meeting backend errors onto HTTP statuses.
func ProviderError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, provider.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, provider.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, provider.ErrCapacityExceeded):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, provider.ErrAlreadyJoined),
		errors.Is(err, provider.ErrAlreadyLive),
		errors.Is(err, provider.ErrAlreadyEnded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, provider.ErrUnsupportedProvider):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
