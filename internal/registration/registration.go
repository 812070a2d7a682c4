package registration

import (
	"log/slog"

	"realform/internal/registration/handler"
	"realform/internal/registration/service"
)

// Service exposes the submission pipeline and the admin operations.
type Service = service.Service

// Handler wires HTTP endpoints to the registration service.
type Handler = handler.Handler

// NewService constructs the registration service with required dependencies.
func NewService(
	store service.Store,
	uploader service.Uploader,
	hasher service.Hasher,
	images service.ImageValidator,
	opts ...service.Option,
) (*Service, error) {
	return service.New(store, uploader, hasher, images, opts...)
}

// NewHandler constructs the HTTP handler for submission and admin routes.
func NewHandler(s *Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	return handler.New(s, logger, maxUploadBytes)
}
