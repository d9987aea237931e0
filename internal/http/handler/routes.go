package handler

import (
	"github.com/gofiber/fiber/v2"

	"qrverify/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// uploadMiddleware runs in front of POST /upload only (rate limiting).
func RegisterRoutes(app *fiber.App, health Pinger, docSvc service.DocumentService, uploadMiddleware ...fiber.Handler) {
	app.Get("/health", HealthCheck(health))
	app.Get("/healthz", LivenessProbe())

	upload := append(append([]fiber.Handler{}, uploadMiddleware...), UploadImage(docSvc))
	app.Post("/upload", upload...)
	app.Get("/verify/:identifier", VerifyDocument(docSvc))
}
