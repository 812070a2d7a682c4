package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"realform/internal/registration/media"
	"realform/internal/registration/models"
	"realform/internal/registration/service"
	"realform/internal/registration/store/memory"
	"realform/pkg/secrets"
	"realform/pkg/testutil"
)

type recordingUploader struct {
	mu      sync.Mutex
	keys    []string
	failing bool
}

func (u *recordingUploader) Upload(_ context.Context, _ []byte, contentType string) (*models.StoredObject, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failing {
		return nil, errors.New("bucket unavailable")
	}
	key := "profile-pictures/" + strings.Repeat("k", len(u.keys)+1) + media.Extension(contentType)
	u.keys = append(u.keys, key)
	return &models.StoredObject{Key: key, URL: "https://cdn.example.com/" + key}, nil
}

func (u *recordingUploader) Delete(context.Context, string) error { return nil }

func (u *recordingUploader) uploads() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.keys)
}

type HandlerSuite struct {
	suite.Suite
	store    *memory.InMemory
	uploader *recordingUploader
	router   http.Handler
	logs     *bytes.Buffer
	clock    time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.store = memory.New()
	s.uploader = &recordingUploader{}
	s.logs = &bytes.Buffer{}
	s.clock = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	s.router = s.newRouter(1 << 20)
}

func (s *HandlerSuite) newRouter(maxUpload int64) http.Handler {
	logger := slog.New(slog.NewTextHandler(s.logs, nil))
	svc, err := service.New(s.store, s.uploader, secrets.NewHasher(bcrypt.MinCost), media.NewValidator(nil),
		service.WithLogger(logger))
	s.Require().NoError(err)

	h := New(svc, logger, maxUpload)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return r
}

func validFields(email string) map[string]string {
	return map[string]string{
		models.FieldFirstName:   "Ada",
		models.FieldLastName:    "Lovelace",
		models.FieldPassword:    "analytical-engine",
		models.FieldEmail:       email,
		models.FieldDateOfBirth: "1990-12-10",
		models.FieldGender:      "female",
		models.FieldBiography:   "Mathematician",
	}
}

func pngFile() testutil.MultipartFile {
	return testutil.MultipartFile{
		Field:       models.FieldProfilePicture,
		Filename:    "me.png",
		ContentType: "image/png",
		Data:        []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A},
	}
}

func (s *HandlerSuite) register(email string, at time.Time, files ...testutil.MultipartFile) *http.Request {
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/register", validFields(email), files...)
	return testutil.WithRequestTime(req, at)
}

func (s *HandlerSuite) TestRegister() {
	s.Run("valid submission is created", func() {
		rr := testutil.DoRequest(s.router, s.register("ada@example.com", s.clock, pngFile()))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "message", "Registration successful")
		s.Equal(1, s.uploader.uploads())
	})

	s.Run("duplicate email is a conflict", func() {
		rr := testutil.DoRequest(s.router, s.register("ADA@example.com", s.clock.Add(time.Minute), pngFile()))

		s.Equal(http.StatusConflict, rr.Code)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("Registration already exists", body["error"])
		s.Equal("conflict", body["code"])
	})

	s.Run("missing picture is rejected without upload", func() {
		before := s.uploader.uploads()
		rr := testutil.DoRequest(s.router, s.register("new@example.com", s.clock))

		s.Equal(http.StatusBadRequest, rr.Code)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("Profile picture required", body["error"])
		s.Equal("missing_asset", body["code"])
		s.Equal(before, s.uploader.uploads())
	})

	s.Run("text/plain is rejected without upload", func() {
		before := s.uploader.uploads()
		file := pngFile()
		file.ContentType = "text/plain"
		rr := testutil.DoRequest(s.router, s.register("new@example.com", s.clock, file))

		s.Equal(http.StatusBadRequest, rr.Code)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("Only JPEG/PNG allowed", body["error"])
		s.Equal(before, s.uploader.uploads())
	})

	s.Run("unknown field is rejected", func() {
		fields := validFields("extra@example.com")
		fields["isAdmin"] = "true"
		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/register", fields, pngFile())
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("malformed multipart body is a bad request", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/register", "garbage")
		req.Header.Set("Content-Type", "multipart/form-data")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestRegisterWithoutMultipartIsMissingPicture() {
	form := url.Values{}
	for name, value := range validFields("plain@example.com") {
		form.Set(name, value)
	}

	cases := map[string]func() *http.Request{
		"urlencoded form": func() *http.Request {
			req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/register", form.Encode())
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req
		},
		"json body": func() *http.Request {
			return testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", validFields("json@example.com"))
		},
		"empty body": func() *http.Request {
			return testutil.NewRequest(s.T(), http.MethodPost, "/register")
		},
	}

	for name, build := range cases {
		s.Run(name, func() {
			rr := testutil.DoRequest(s.router, testutil.WithRequestTime(build(), s.clock))

			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "missing_asset")
			s.Equal(0, s.uploader.uploads())
		})
	}

	_, total, err := s.store.List(context.Background(), models.PageQuery{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(0, total)
}

func (s *HandlerSuite) TestRegisterBodyTooLarge() {
	router := s.newRouter(1024)
	file := pngFile()
	file.Data = bytes.Repeat([]byte{0xAB}, 4096)

	rr := testutil.DoRequest(router, s.register("big@example.com", s.clock, file))

	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal(0, s.uploader.uploads())
}

func (s *HandlerSuite) TestRegisterUploadFailure() {
	s.uploader.failing = true

	rr := testutil.DoRequest(s.router, s.register("ada@example.com", s.clock, pngFile()))

	s.Equal(http.StatusBadGateway, rr.Code)
	body := testutil.UnmarshalErrorResponse(s.T(), rr)
	s.Equal("Profile picture upload failed", body["error"])
	s.NotContains(rr.Body.String(), "bucket unavailable")

	_, total, err := s.store.List(context.Background(), models.PageQuery{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(0, total)
}

func (s *HandlerSuite) TestListAndDelete() {
	for i, email := range []string{"t1@example.com", "t2@example.com", "t3@example.com"} {
		rr := testutil.DoRequest(s.router, s.register(email, s.clock.Add(time.Duration(i)*time.Hour), pngFile()))
		s.Require().Equal(http.StatusCreated, rr.Code)
	}

	s.Run("page two of size one returns the middle record", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/registrations?page=2&limit=1"))

		testutil.AssertStatusOK(s.T(), rr)
		s.NotContains(rr.Body.String(), "password")
		s.NotContains(rr.Body.String(), "$2a$")
		page := testutil.UnmarshalResponse[PageResponse](s.T(), rr)
		s.Require().Len(page.Docs, 1)
		s.Equal("t2@example.com", page.Docs[0].Email)
		s.Equal(3, page.TotalDocs)
		s.Equal(3, page.TotalPages)
		s.Equal(2, page.Page)
		s.Equal(1, page.Limit)
		s.True(page.HasPrevPage)
		s.True(page.HasNextPage)
		s.Require().NotNil(page.PrevPage)
		s.Equal(1, *page.PrevPage)
	})

	s.Run("invalid paging falls back to defaults", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/registrations?page=abc&limit=-4"))

		testutil.AssertStatusOK(s.T(), rr)
		page := testutil.UnmarshalResponse[PageResponse](s.T(), rr)
		s.Equal(1, page.Page)
		s.Equal(10, page.Limit)
		s.Len(page.Docs, 3)
		s.Equal("t3@example.com", page.Docs[0].Email)
		s.Nil(page.PrevPage)
	})

	s.Run("malformed id is invalid", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/api/registration/xyz"))

		s.Equal(http.StatusBadRequest, rr.Code)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("Invalid registration ID", body["error"])
		s.Equal("invalid_id", body["code"])
	})

	s.Run("unknown id is not found", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/api/registration/0f8fad5b-d9cb-469f-a165-70867728950e"))

		s.Equal(http.StatusNotFound, rr.Code)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("Registration not found", body["error"])
	})

	s.Run("existing id is removed from the listing", func() {
		docs, _, err := s.store.List(context.Background(), models.PageQuery{Page: 1, Limit: 10})
		s.Require().NoError(err)
		target := docs[1]

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/api/registration/"+target.ID.String()))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "message", "Registration deleted successfully")

		rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/registrations"))
		page := testutil.UnmarshalResponse[PageResponse](s.T(), rr)
		s.Equal(2, page.TotalDocs)
		for _, d := range page.Docs {
			s.NotEqual(target.ID.String(), d.ID)
		}
	})
}
