package api

import (
	"git.solsynth.dev/hypernet/attendance/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/provider"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func createMeeting(c *fiber.Ctx) error {
	var data provider.MeetingSpec
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	backend, err := services.GetProvider()
	if err != nil {
		return exts.ProviderError(err)
	}

	if meeting, err := backend.CreateMeeting(c.UserContext(), data); err != nil {
		return exts.ProviderError(err)
	} else {
		return c.Status(fiber.StatusCreated).JSON(meeting)
	}
}

func getMeeting(c *fiber.Ctx) error {
	backend, err := services.GetProvider()
	if err != nil {
		return exts.ProviderError(err)
	}

	if meeting, err := backend.GetMeetingInfo(c.UserContext(), c.Params("meeting")); err != nil {
		return exts.ProviderError(err)
	} else {
		return c.JSON(meeting)
	}
}

func updateMeeting(c *fiber.Ctx) error {
	var data provider.MeetingPatch
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	backend, err := services.GetProvider()
	if err != nil {
		return exts.ProviderError(err)
	}

	if meeting, err := backend.UpdateMeeting(c.UserContext(), c.Params("meeting"), data); err != nil {
		return exts.ProviderError(err)
	} else {
		services.Hub.Reschedule(meeting)
		return c.JSON(meeting)
	}
}

func deleteMeeting(c *fiber.Ctx) error {
	backend, err := services.GetProvider()
	if err != nil {
		return exts.ProviderError(err)
	}

	if err := backend.DeleteMeeting(c.UserContext(), c.Params("meeting")); err != nil {
		return exts.ProviderError(err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func startMeeting(c *fiber.Ctx) error {
	backend, err := services.GetProvider()
	if err != nil {
		return exts.ProviderError(err)
	}

	if meeting, err := backend.StartMeeting(c.UserContext(), c.Params("meeting")); err != nil {
		return exts.ProviderError(err)
	} else {
		return c.JSON(meeting)
	}
}

func endMeeting(c *fiber.Ctx) error {
	backend, err := services.GetProvider()
	if err != nil {
		return exts.ProviderError(err)
	}

	meeting, err := backend.EndMeeting(c.UserContext(), c.Params("meeting"))
	if err != nil {
		return exts.ProviderError(err)
	}

	records := services.Hub.CloseMeeting(meeting.ID)
	return c.JSON(fiber.Map{
		"meeting":    meeting,
		"attendance": records,
	})
}
