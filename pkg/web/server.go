// Package web serves the VoiceMap control API and event stream.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/voicemap/pkg/command"
	"github.com/teslashibe/voicemap/pkg/hazard"
	"github.com/teslashibe/voicemap/pkg/hub"
	"github.com/teslashibe/voicemap/pkg/session"
	"github.com/teslashibe/voicemap/pkg/voicemap"
)

// Controller is the application surface the API drives.
// *voicemap.App implements it.
type Controller interface {
	Status() voicemap.Status
	Commands() []command.Binding
	Interactions() []session.Interaction

	Submit(ctx context.Context, text string) (command.Resolution, error)
	StartListening(ctx context.Context) error
	StopListening()
	ReinitializeVoice(ctx context.Context) error

	AnnounceLocation()
	StartTracking() error
	StopTracking()

	Hazards() []hazard.Report
	ReportHazard(ctx context.Context, description, severity string) (hazard.Report, error)
	DeleteHazard(id string) error

	PressEmergency(ctx context.Context) bool
	CancelEmergency() bool

	SetScreen(name string) (voicemap.Screen, error)
}

// Server is the HTTP server.
type Server struct {
	app    *fiber.App
	ctrl   Controller
	events *hub.Hub
	logger *slog.Logger
}

// NewServer creates a server for ctrl. Events published on events are
// streamed to /ws/events.
func NewServer(ctrl Controller, events *hub.Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		ctrl:   ctrl,
		events: events,
		logger: log.With("component", "web.server"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "VoiceMap",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/commands", s.handleCommands)
	api.Get("/metrics", s.handleMetrics)

	api.Post("/transcript", s.handleTranscript)
	api.Post("/listen", s.handleStartListening)
	api.Delete("/listen", s.handleStopListening)
	api.Post("/voice/init", s.handleReinitialize)

	api.Post("/location/announce", s.handleAnnounceLocation)
	api.Post("/tracking", s.handleStartTracking)
	api.Delete("/tracking", s.handleStopTracking)

	api.Get("/hazards", s.handleListHazards)
	api.Post("/hazards", s.handleReportHazard)
	api.Delete("/hazards/:id", s.handleDeleteHazard)

	api.Post("/emergency", s.handlePressEmergency)
	api.Delete("/emergency", s.handleCancelEmergency)

	api.Post("/screen/:name", s.handleSetScreen)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("web server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
