// Package statusserver exposes the connection status side-channel over
// HTTP: current phase as JSON and the pairing QR code as a scannable PNG.
package statusserver

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	"github.com/arkbridge/adapter-whatsapp-web/internal/status"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/env"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/log"
)

type Response struct {
	Status  bool   `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type Server struct {
	app    *fiber.App
	hub    *status.Hub
	logger *logrus.Entry
}

func New(hub *status.Hub) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		hub:    hub,
		logger: log.Print("statusserver"),
	}

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: env.GetEnvStringOrDefault("HTTP_CORS_ORIGIN", "*"),
		AllowMethods: "GET",
	}))

	s.app.Get("/status", s.handleStatus)
	s.app.Get("/qr", s.handleQR)
	s.app.Get("/health", s.handleHealth)
	return s
}

// Listen blocks serving until Shutdown is called.
func (s *Server) Listen(address string) error {
	s.logger.WithField("address", address).Info("Status server listening")
	return s.app.Listen(address)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	current := s.hub.Current()
	return c.Status(http.StatusOK).JSON(Response{
		Status:  true,
		Code:    http.StatusOK,
		Message: string(current.Status),
		Data:    current,
	})
}

// handleQR serves the current pairing code as a raw PNG so it can be
// scanned straight from a browser tab.
func (s *Server) handleQR(c *fiber.Ctx) error {
	current := s.hub.Current()
	if current.Status != status.PhaseQRCode || current.Image == "" {
		return c.Status(http.StatusNotFound).JSON(Response{
			Status:  false,
			Code:    http.StatusNotFound,
			Message: "No pairing code is currently available",
		})
	}

	encoded, ok := strings.CutPrefix(current.Image, "data:image/png;base64,")
	if !ok {
		return c.Status(http.StatusInternalServerError).JSON(Response{
			Status:  false,
			Code:    http.StatusInternalServerError,
			Message: "Pairing code image is malformed",
		})
	}
	png, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(Response{
			Status:  false,
			Code:    http.StatusInternalServerError,
			Message: "Pairing code image is malformed",
		})
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Status(http.StatusOK).Send(png)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	current := s.hub.Current()
	healthy := current.Status == status.PhaseSuccess || current.Status == status.PhaseContinue
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	return c.Status(code).JSON(Response{
		Status:  healthy,
		Code:    code,
		Message: string(current.Status),
	})
}
