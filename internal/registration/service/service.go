package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"realform/internal/registration/metrics"
	"realform/internal/registration/models"
	id "realform/pkg/domain"
	dErrors "realform/pkg/domain-errors"
	"realform/pkg/platform/sentinel"
	"realform/pkg/requestcontext"
)

const tracerName = "realform/internal/registration/service"

// Audit events emitted by the service.
const (
	EventRegistrationCreated  = "registration_created"
	EventRegistrationConflict = "registration_conflict"
	EventRegistrationDeleted  = "registration_deleted"
)

// Store persists registrations. Create must be atomic with respect to the
// email uniqueness check and return sentinel.ErrAlreadyUsed on conflict.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	List(ctx context.Context, q models.PageQuery) ([]*models.Registration, int, error)
	Delete(ctx context.Context, registrationID id.RegistrationID) error
}

// Uploader externalizes profile pictures.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (*models.StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// Hasher derives a one-way digest from a plaintext password.
type Hasher interface {
	Hash(secret string) (string, error)
}

// ImageValidator accepts or rejects an attached picture.
type ImageValidator interface {
	Validate(upload *models.Upload) error
}

// Service runs the submission pipeline and the admin listing and deletion.
type Service struct {
	store          Store
	uploader       Uploader
	hasher         Hasher
	images         ImageValidator
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	cleanupOrphans bool
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithOrphanCleanup deletes the uploaded picture when the record cannot be
// persisted. Cleanup is best effort; its failures are only logged.
func WithOrphanCleanup(enabled bool) Option {
	return func(s *Service) {
		s.cleanupOrphans = enabled
	}
}

// New constructs a Service.
func New(store Store, uploader Uploader, hasher Hasher, images ImageValidator, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if uploader == nil {
		return nil, errors.New("uploader is required")
	}
	if hasher == nil {
		return nil, errors.New("hasher is required")
	}
	if images == nil {
		return nil, errors.New("image validator is required")
	}
	s := &Service{
		store:    store,
		uploader: uploader,
		hasher:   hasher,
		images:   images,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit validates, uploads, hashes and persists one registration.
// Steps run in that order and stop at the first failure.
func (s *Service) Submit(ctx context.Context, req *models.SubmitRequest) error {
	if req == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if err := s.images.Validate(req.Picture); err != nil {
		s.incrementSubmission(metrics.OutcomeInvalid)
		return err
	}

	req.Normalize()
	now := requestcontext.Now(ctx)
	fields, err := req.Validate(now)
	if err != nil {
		s.incrementSubmission(metrics.OutcomeInvalid)
		return err
	}

	stored, err := s.upload(ctx, req.Picture)
	if err != nil {
		s.incrementSubmission(metrics.OutcomeUploadFailed)
		s.logError(ctx, "profile picture upload failed", err)
		return err
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.incrementSubmission(metrics.OutcomeHashingFailed)
		s.logError(ctx, "password hashing failed", err)
		s.cleanupOrphan(ctx, stored)
		if dErrors.CodeOf(err) == dErrors.CodeInvalidInput {
			return dErrors.Wrap(err, dErrors.CodeValidation, "password is required")
		}
		return dErrors.Wrap(err, dErrors.CodeHashing, "failed to hash password")
	}

	reg, err := models.NewRegistration(id.NewRegistrationID(), fields, digest, stored.URL, now)
	if err != nil {
		s.incrementSubmission(metrics.OutcomeInvalid)
		s.cleanupOrphan(ctx, stored)
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	}

	if err := s.persist(ctx, reg); err != nil {
		s.cleanupOrphan(ctx, stored)
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.incrementSubmission(metrics.OutcomeConflict)
			s.logAudit(ctx, EventRegistrationConflict, "email", reg.Email)
			return dErrors.Wrap(err, dErrors.CodeConflict, "Registration already exists")
		}
		s.incrementSubmission(metrics.OutcomePersistFailed)
		s.logError(ctx, "registration persist failed", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
	}

	s.incrementSubmission(metrics.OutcomeCreated)
	s.logAudit(ctx, EventRegistrationCreated,
		"registration_id", reg.ID.String(),
		"email", reg.Email,
		"object_key", stored.Key,
	)
	return nil
}

func (s *Service) upload(ctx context.Context, picture *models.Upload) (*models.StoredObject, error) {
	ctx, span := s.tracer.Start(ctx, "registration.upload", trace.WithAttributes(
		attribute.String("content_type", picture.ContentType),
		attribute.Int("size_bytes", len(picture.Data)),
	))
	defer span.End()

	start := time.Now()
	stored, err := s.uploader.Upload(ctx, picture.Data, picture.ContentType)
	s.observeUpload(start)
	if err != nil {
		recordSpanError(span, err)
		if !dErrors.HasCode(err, dErrors.CodeUploadFailed) {
			err = dErrors.Wrap(err, dErrors.CodeUploadFailed, "Profile picture upload failed")
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("object_key", stored.Key))
	return stored, nil
}

func (s *Service) persist(ctx context.Context, reg *models.Registration) error {
	ctx, span := s.tracer.Start(ctx, "registration.persist", trace.WithAttributes(
		attribute.String("registration_id", reg.ID.String()),
	))
	defer span.End()

	start := time.Now()
	err := s.store.Create(ctx, reg)
	s.observePersist(start)
	if err != nil {
		recordSpanError(span, err)
	}
	return err
}

// cleanupOrphan removes an uploaded picture that no record will reference.
// It runs detached from request cancellation.
func (s *Service) cleanupOrphan(ctx context.Context, stored *models.StoredObject) {
	if !s.cleanupOrphans || stored == nil {
		return
	}
	if err := s.uploader.Delete(context.WithoutCancel(ctx), stored.Key); err != nil {
		s.incrementOrphanCleanup(metrics.CleanupFailed)
		if s.logger != nil {
			s.logger.WarnContext(ctx, "orphaned upload cleanup failed",
				"object_key", stored.Key,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		return
	}
	s.incrementOrphanCleanup(metrics.CleanupDeleted)
}

// List returns one page of registrations, newest first.
func (s *Service) List(ctx context.Context, q models.PageQuery) (*models.Page, error) {
	q = q.Normalized()
	start := time.Now()
	docs, total, err := s.store.List(ctx, q)
	s.observeList(start)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return models.NewPage(docs, total, q), nil
}

// Delete removes the registration identified by rawID. Malformed ids are
// rejected before the store is consulted.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	registrationID, err := id.ParseRegistrationID(rawID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, registrationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Registration not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete registration")
	}
	s.incrementDeleted()
	s.logAudit(ctx, EventRegistrationDeleted, "registration_id", registrationID.String())
	return nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
}

func (s *Service) incrementSubmission(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementSubmission(outcome)
	}
}

func (s *Service) incrementOrphanCleanup(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementOrphanCleanup(outcome)
	}
}

func (s *Service) incrementDeleted() {
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
}

func (s *Service) observeUpload(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveUpload(start)
	}
}

func (s *Service) observePersist(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObservePersist(start)
	}
}

func (s *Service) observeList(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveList(start)
	}
}
