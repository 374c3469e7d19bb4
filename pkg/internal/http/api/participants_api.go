package api

import (
	"errors"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/provider"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func listParticipants(c *fiber.Ctx) error {
	backend, err := services.GetProvider()
	if err != nil {
		return exts.ProviderError(err)
	}

	participants, err := backend.GetParticipants(c.UserContext(), c.Params("meeting"))
	if err != nil {
		return exts.ProviderError(err)
	}
	if c.QueryBool("active", false) {
		var active []provider.Participant
		for _, item := range participants {
			if item.IsActive {
				active = append(active, item)
			}
		}
		participants = active
	}
	return c.JSON(participants)
}

func joinMeeting(c *fiber.Ctx) error {
	var data struct {
		UserID       string `json:"user_id" validate:"required"`
		Name         string `json:"name"`
		AudioEnabled bool   `json:"audio_enabled"`
		VideoEnabled bool   `json:"video_enabled"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	backend, err := services.GetProvider()
	if err != nil {
		return exts.ProviderError(err)
	}

	ctx := c.UserContext()
	id := c.Params("meeting")

	participant, err := backend.JoinMeeting(ctx, id, provider.ParticipantSpec{
		UserID:       data.UserID,
		Name:         data.Name,
		AudioEnabled: data.AudioEnabled,
		VideoEnabled: data.VideoEnabled,
	})
	if err != nil {
		return exts.ProviderError(err)
	}
	meeting, err := backend.GetMeetingInfo(ctx, id)
	if err != nil {
		return exts.ProviderError(err)
	}

	session, err := services.Hub.Open(meeting, participant)
	if err != nil {
		if _, lerr := backend.LeaveMeeting(ctx, id, participant.UserID); lerr != nil {
			log.Error().Err(lerr).Str("meeting", id).Str("user", participant.UserID).
				Msg("An error occurred when rolling back meeting join...")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	url, err := backend.GenerateJoinURL(ctx, id, participant.UserID, participant.Name)
	if err != nil {
		return exts.ProviderError(err)
	}

	cfg := session.Config()
	return c.JSON(fiber.Map{
		"participant":        participant,
		"session_id":         session.SessionID(),
		"join_url":           url,
		"heartbeat_interval": cfg.HeartbeatInterval.Seconds(),
		"max_idle_time":      cfg.MaxIdleTime.Seconds(),
	})
}

func leaveMeeting(c *fiber.Ctx) error {
	var data struct {
		UserID string `json:"user_id" validate:"required"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	backend, err := services.GetProvider()
	if err != nil {
		return exts.ProviderError(err)
	}

	participant, err := backend.LeaveMeeting(c.UserContext(), c.Params("meeting"), data.UserID)
	if err != nil {
		return exts.ProviderError(err)
	}

	resp := fiber.Map{"participant": participant, "attendance": nil}
	if record, err := services.Hub.CloseParticipant(c.Params("meeting"), data.UserID); err == nil {
		resp["attendance"] = record
	} else if !errors.Is(err, services.ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(resp)
}

func getJoinURL(c *fiber.Ctx) error {
	backend, err := services.GetProvider()
	if err != nil {
		return exts.ProviderError(err)
	}

	if url, err := backend.GenerateJoinURL(c.UserContext(), c.Params("meeting"), c.Query("user_id"), c.Query("name")); err != nil {
		return exts.ProviderError(err)
	} else {
		return c.JSON(fiber.Map{"url": url})
	}
}
