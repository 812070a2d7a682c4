package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"realform/internal/registration/models"
	dErrors "realform/pkg/domain-errors"
	"realform/pkg/platform/httputil"
	"realform/pkg/requestcontext"
)

// DefaultMaxUploadBytes bounds the whole multipart body of a submission.
const DefaultMaxUploadBytes int64 = 10 << 20

// multipart parts above this size spill to temporary files
const maxMemoryBytes = 4 << 20

// Service defines the registration operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, req *models.SubmitRequest) error
	List(ctx context.Context, q models.PageQuery) (*models.Page, error)
	Delete(ctx context.Context, rawID string) error
}

// Handler handles registration submission and the admin endpoints.
type Handler struct {
	logger         *slog.Logger
	service        Service
	maxUploadBytes int64
}

// New creates a new registration Handler. A non-positive maxUploadBytes
// uses DefaultMaxUploadBytes.
func New(service Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		logger:         logger,
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register registers the public submission route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.HandleRegister)
}

// RegisterAdmin registers the listing and deletion routes. Callers are
// expected to gate r with admin authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/registrations", h.HandleList)
	r.Delete("/api/registration/{id}", h.HandleDelete)
}

// HandleRegister accepts a multipart submission with a profile picture.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, err := h.decodeSubmission(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid registration form",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Submit(ctx, req); err != nil {
		h.logFailure(ctx, "registration failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, MessageResponse{Message: "Registration successful"})
}

// HandleList returns one page of registrations, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := models.ParsePageQuery(r.URL.Query().Get("page"), r.URL.Query().Get("limit"))

	page, err := h.service.List(ctx, q)
	if err != nil {
		h.logFailure(ctx, "failed to list registrations", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toPageResponse(page))
}

// HandleDelete removes a registration by id.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.logFailure(ctx, "failed to delete registration", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Registration deleted successfully"})
}

func (h *Handler) decodeSubmission(w http.ResponseWriter, r *http.Request) (*models.SubmitRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	err := r.ParseMultipartForm(maxMemoryBytes)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
	case errors.As(err, &tooLarge):
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "Request body too large")
	case errors.Is(err, http.ErrNotMultipart):
		// No file can be attached; the image check reports the missing picture.
		req := &models.SubmitRequest{}
		readFields(req, r.PostForm)
		return req, nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid multipart form")
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req := &models.SubmitRequest{}
	readFields(req, r.MultipartForm.Value)

	for name, files := range r.MultipartForm.File {
		if name != models.FieldProfilePicture {
			req.CheckField(name)
			continue
		}
		if len(files) == 0 {
			continue
		}
		fh := files[0]
		f, err := fh.Open()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid profile picture")
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid profile picture")
		}
		req.Picture = &models.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		}
	}

	return req, nil
}

func readFields(req *models.SubmitRequest, form map[string][]string) {
	for name, values := range form {
		req.CheckField(name)
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch name {
		case models.FieldFirstName:
			req.FirstName = value
		case models.FieldLastName:
			req.LastName = value
		case models.FieldPassword:
			req.Password = value
		case models.FieldEmail:
			req.Email = value
		case models.FieldDateOfBirth:
			req.DateOfBirth = value
		case models.FieldGender:
			req.Gender = value
		case models.FieldBiography:
			req.Biography = value
		}
	}
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"code", string(dErrors.CodeOf(err)),
		"error", err,
	}
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.InfoContext(ctx, msg, attrs...)
}
