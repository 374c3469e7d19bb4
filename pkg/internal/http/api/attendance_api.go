package api

import (
	"git.solsynth.dev/hypernet/attendance/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listAttendance(c *fiber.Ctx) error {
	if records, err := services.ListAttendance(c.Params("meeting")); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else {
		return c.JSON(records)
	}
}

func listSessions(c *fiber.Ctx) error {
	if sessions, err := services.ListSessions(c.Params("meeting")); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else {
		return c.JSON(sessions)
	}
}

func listMeetingEvents(c *fiber.Ctx) error {
	take := c.QueryInt("take", 20)
	offset := c.QueryInt("offset", 0)
	meeting := c.Params("meeting")

	count := services.CountMeetingEvents(meeting)
	if events, err := services.ListMeetingEvents(meeting, take, offset); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else {
		return c.JSON(fiber.Map{
			"count": count,
			"data":  events,
		})
	}
}
