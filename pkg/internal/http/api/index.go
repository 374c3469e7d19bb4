package api

import (
	"github.com/gofiber/fiber/v2"
)

func MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		api.Get("/ping", ping)
		api.Get("/providers", listProviders)

		meetings := api.Group("/meetings").Name("Meetings API")
		{
			meetings.Post("/", createMeeting)
			meetings.Get("/:meeting", getMeeting)
			meetings.Put("/:meeting", updateMeeting)
			meetings.Delete("/:meeting", deleteMeeting)
			meetings.Post("/:meeting/start", startMeeting)
			meetings.Post("/:meeting/end", endMeeting)

			meetings.Get("/:meeting/participants", listParticipants)
			meetings.Post("/:meeting/join", joinMeeting)
			meetings.Post("/:meeting/leave", leaveMeeting)
			meetings.Get("/:meeting/join-url", getJoinURL)

			meetings.Get("/:meeting/attendance", listAttendance)
			meetings.Get("/:meeting/sessions", listSessions)
			meetings.Get("/:meeting/events", listMeetingEvents)
		}

		sessions := api.Group("/sessions").Name("Sessions API")
		{
			sessions.Get("/:session", getSession)
			sessions.Get("/:session/heartbeats", listSessionHeartbeats)
			sessions.Post("/:session/activity", recordActivity)
			sessions.Delete("/:session", stopSession)
		}
	}
}
