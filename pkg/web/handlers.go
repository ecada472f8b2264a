package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/voicemap/pkg/hazard"
	"github.com/teslashibe/voicemap/pkg/hub"
	"github.com/teslashibe/voicemap/pkg/location"
	"github.com/teslashibe/voicemap/pkg/session"
	"github.com/teslashibe/voicemap/pkg/voicemap"
)

// TranscriptRequest is the body of POST /api/transcript.
type TranscriptRequest struct {
	Text string `json:"text"`
}

// HazardRequest is the body of POST /api/hazards.
type HazardRequest struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, hazard.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, hazard.ErrInvalidSeverity),
		errors.Is(err, hazard.ErrEmptyDescription),
		errors.Is(err, session.ErrEmptyTranscript),
		errors.Is(err, voicemap.ErrUnknownScreen):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrAlreadyListening),
		errors.Is(err, session.ErrNotReady):
		return fiber.StatusConflict
	case errors.Is(err, session.ErrUnavailable),
		errors.Is(err, location.ErrNotSupported),
		errors.Is(err, voicemap.ErrNoLocation):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := errorStatus(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handleCommands(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Commands())
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Interactions())
}

func (s *Server) handleTranscript(c *fiber.Ctx) error {
	var req TranscriptRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	res, err := s.ctrl.Submit(c.UserContext(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) handleStartListening(c *fiber.Ctx) error {
	if err := s.ctrl.StartListening(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleStopListening(c *fiber.Ctx) error {
	s.ctrl.StopListening()
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleReinitialize(c *fiber.Ctx) error {
	if err := s.ctrl.ReinitializeVoice(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(s.ctrl.Status().Voice)
}

func (s *Server) handleAnnounceLocation(c *fiber.Ctx) error {
	s.ctrl.AnnounceLocation()
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleStartTracking(c *fiber.Ctx) error {
	if err := s.ctrl.StartTracking(); err != nil {
		return err
	}
	return c.JSON(s.ctrl.Status().Tracking)
}

func (s *Server) handleStopTracking(c *fiber.Ctx) error {
	s.ctrl.StopTracking()
	return c.JSON(s.ctrl.Status().Tracking)
}

func (s *Server) handleListHazards(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Hazards())
}

func (s *Server) handleReportHazard(c *fiber.Ctx) error {
	var req HazardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	r, err := s.ctrl.ReportHazard(c.UserContext(), req.Description, req.Severity)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (s *Server) handleDeleteHazard(c *fiber.Ctx) error {
	if err := s.ctrl.DeleteHazard(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handlePressEmergency(c *fiber.Ctx) error {
	active := s.ctrl.PressEmergency(c.UserContext())
	return c.JSON(fiber.Map{"active": active})
}

func (s *Server) handleCancelEmergency(c *fiber.Ctx) error {
	cancelled := s.ctrl.CancelEmergency()
	return c.JSON(fiber.Map{"cancelled": cancelled})
}

func (s *Server) handleSetScreen(c *fiber.Ctx) error {
	screen, err := s.ctrl.SetScreen(c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"screen": screen})
}

// handleEventsWS streams application events. The current status is sent
// first so a client starts from a known state.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	if err := c.WriteJSON(voicemap.Event{Type: voicemap.EventStatus, Time: time.Now(), Data: s.ctrl.Status()}); err != nil {
		return
	}
	client, err := hub.NewClient(s.events, c)
	if err != nil {
		s.logger.Warn("event stream unavailable", "error", err)
		return
	}
	client.Run()
}
