package api

import (
	"errors"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/liveness"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

func sessionError(err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidSignal):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func getSession(c *fiber.Ctx) error {
	if stats, err := services.Hub.Stats(c.Params("session")); err != nil {
		return sessionError(err)
	} else {
		return c.JSON(stats)
	}
}

func listSessionHeartbeats(c *fiber.Ctx) error {
	take := c.QueryInt("take", 20)
	offset := c.QueryInt("offset", 0)

	if heartbeats, err := services.ListHeartbeats(c.Params("session"), take, offset); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else {
		return c.JSON(heartbeats)
	}
}

// activitySignal is a reported signal. A missing value means visible or
// focused.
type activitySignal struct {
	Kind  liveness.SignalKind `json:"kind" validate:"required"`
	Value *bool               `json:"value"`
}

func recordActivity(c *fiber.Ctx) error {
	var data struct {
		Signals []activitySignal `json:"signals" validate:"required,min=1,dive"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	signals := lo.Map(data.Signals, func(item activitySignal, _ int) liveness.Signal {
		return liveness.Signal{Kind: item.Kind, Value: lo.FromPtrOr(item.Value, true)}
	})
	if err := services.Hub.Signal(c.Params("session"), signals...); err != nil {
		return sessionError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func stopSession(c *fiber.Ctx) error {
	if record, err := services.Hub.Close(c.Params("session")); err != nil {
		return sessionError(err)
	} else {
		return c.JSON(record)
	}
}
