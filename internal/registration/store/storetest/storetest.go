// Package storetest holds the behaviour every registration store must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"realform/internal/registration/models"
	id "realform/pkg/domain"
	"realform/pkg/platform/sentinel"
)

// Store is the registration repository contract.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	List(ctx context.Context, q models.PageQuery) ([]*models.Registration, int, error)
	Delete(ctx context.Context, registrationID id.RegistrationID) error
}

// Factory returns an empty store. It is called before every test.
type Factory func(t *testing.T) Store

// Run executes the shared store suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	suite.Run(t, &StoreSuite{newStore: newStore})
}

type StoreSuite struct {
	suite.Suite
	newStore Factory
	store    Store
	ctx      context.Context
	base     time.Time
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
	s.base = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
}

// NewRecord builds a valid registration created offset after a fixed base time.
func NewRecord(email string, createdAt time.Time) *models.Registration {
	return &models.Registration{
		ID:                id.NewRegistrationID(),
		FirstName:         "Ada",
		LastName:          "Lovelace",
		PasswordDigest:    "$2a$10$abcdefghijklmnopqrstuv",
		Email:             email,
		DateOfBirth:       time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		Gender:            "female",
		Biography:         "",
		ProfilePictureURL: "https://cdn.example.com/profile-pictures/" + email + ".png",
		CreatedAt:         createdAt.UTC().Truncate(time.Millisecond),
	}
}

func (s *StoreSuite) record(email string, offset time.Duration) *models.Registration {
	return NewRecord(email, s.base.Add(offset))
}

func (s *StoreSuite) TestCreateAndList() {
	reg := s.record("ada@example.com", 0)
	reg.Biography = "Wrote the first program."
	s.Require().NoError(s.store.Create(s.ctx, reg))

	docs, total, err := s.store.List(s.ctx, models.PageQuery{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(docs, 1)

	got := docs[0]
	s.Equal(reg.ID, got.ID)
	s.Equal(reg.FirstName, got.FirstName)
	s.Equal(reg.LastName, got.LastName)
	s.Equal(reg.PasswordDigest, got.PasswordDigest)
	s.Equal(reg.Email, got.Email)
	s.True(reg.DateOfBirth.Equal(got.DateOfBirth), "dateOfBirth %v != %v", reg.DateOfBirth, got.DateOfBirth)
	s.Equal(reg.Gender, got.Gender)
	s.Equal(reg.Biography, got.Biography)
	s.Equal(reg.ProfilePictureURL, got.ProfilePictureURL)
	s.True(reg.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", reg.CreatedAt, got.CreatedAt)
}

func (s *StoreSuite) TestDuplicateEmailRejected() {
	first := s.record("dup@example.com", 0)
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, s.record("other@example.com", time.Second)))

	second := s.record("dup@example.com", 2*time.Second)
	second.FirstName = "Imposter"
	err := s.store.Create(s.ctx, second)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	docs, total, err := s.store.List(s.ctx, models.PageQuery{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(2, total)
	for _, d := range docs {
		if d.Email == "dup@example.com" {
			s.Equal(first.ID, d.ID, "conflict must not overwrite the existing record")
			s.Equal("Ada", d.FirstName)
		}
	}
}

func (s *StoreSuite) TestDuplicateIDRejected() {
	first := s.record("first@example.com", 0)
	s.Require().NoError(s.store.Create(s.ctx, first))

	clash := s.record("second@example.com", time.Minute)
	clash.ID = first.ID
	err := s.store.Create(s.ctx, clash)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	docs, total, err := s.store.List(s.ctx, models.PageQuery{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(docs, 1)
	s.Equal("first@example.com", docs[0].Email)
}

func (s *StoreSuite) TestListPagination() {
	t1 := s.record("t1@example.com", 1*time.Minute)
	t2 := s.record("t2@example.com", 2*time.Minute)
	t3 := s.record("t3@example.com", 3*time.Minute)
	for _, r := range []*models.Registration{t2, t3, t1} {
		s.Require().NoError(s.store.Create(s.ctx, r))
	}

	s.Run("newest first", func() {
		docs, total, err := s.store.List(s.ctx, models.PageQuery{Page: 1, Limit: 10})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Require().Len(docs, 3)
		s.Equal([]id.RegistrationID{t3.ID, t2.ID, t1.ID}, []id.RegistrationID{docs[0].ID, docs[1].ID, docs[2].ID})
	})

	s.Run("page two of size one is the middle record", func() {
		docs, total, err := s.store.List(s.ctx, models.PageQuery{Page: 2, Limit: 1})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Require().Len(docs, 1)
		s.Equal(t2.ID, docs[0].ID)
	})

	s.Run("page past the end is empty", func() {
		docs, total, err := s.store.List(s.ctx, models.PageQuery{Page: 5, Limit: 2})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Empty(docs)
	})

	s.Run("huge page number is an empty page", func() {
		for _, q := range []models.PageQuery{
			{Page: math.MaxInt, Limit: 2},
			models.ParsePageQuery(strconv.Itoa(math.MaxInt), "2"),
			models.ParsePageQuery(strconv.Itoa(math.MaxInt), strconv.Itoa(models.MaxLimit)),
		} {
			docs, total, err := s.store.List(s.ctx, q)
			s.Require().NoError(err, "page %d limit %d", q.Page, q.Limit)
			s.Equal(3, total)
			s.Empty(docs, "page %d limit %d", q.Page, q.Limit)
		}
	})
}

func (s *StoreSuite) TestListTiesBrokenByID() {
	a := s.record("a@example.com", 0)
	b := s.record("b@example.com", 0)
	s.Require().NoError(s.store.Create(s.ctx, a))
	s.Require().NoError(s.store.Create(s.ctx, b))

	docs, _, err := s.store.List(s.ctx, models.PageQuery{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Greater(docs[0].ID.String(), docs[1].ID.String())
}

func (s *StoreSuite) TestDelete() {
	s.Run("unknown id is not found", func() {
		err := s.store.Delete(s.ctx, id.NewRegistrationID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("existing record disappears from listing and frees the email", func() {
		reg := s.record("gone@example.com", 0)
		s.Require().NoError(s.store.Create(s.ctx, reg))

		s.Require().NoError(s.store.Delete(s.ctx, reg.ID))

		docs, total, err := s.store.List(s.ctx, models.PageQuery{Page: 1, Limit: 10})
		s.Require().NoError(err)
		s.Equal(0, total)
		s.Empty(docs)

		s.Require().ErrorIs(s.store.Delete(s.ctx, reg.ID), sentinel.ErrNotFound)
		s.Require().NoError(s.store.Create(s.ctx, s.record("gone@example.com", time.Minute)))
	})
}

// TestConcurrentSameEmail verifies that concurrent creates with one email
// result in exactly one success.
func (s *StoreSuite) TestConcurrentSameEmail() {
	const goroutines = 20
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
		others    atomic.Int32
	)
	start := make(chan struct{})
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			reg := s.record("race@example.com", time.Duration(i)*time.Millisecond)
			err := s.store.Create(s.ctx, reg)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflicts.Add(1)
			default:
				others.Add(1)
				s.T().Logf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
	s.Equal(int32(0), others.Load())

	_, total, err := s.store.List(s.ctx, models.PageQuery{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(1, total)
}

// TestManyRecords checks counts over more than one page.
func (s *StoreSuite) TestManyRecords() {
	for i := range 25 {
		s.Require().NoError(s.store.Create(s.ctx, s.record(fmt.Sprintf("user%02d@example.com", i), time.Duration(i)*time.Second)))
	}

	docs, total, err := s.store.List(s.ctx, models.PageQuery{Page: 3, Limit: 10})
	s.Require().NoError(err)
	s.Equal(25, total)
	s.Require().Len(docs, 5)
	s.Equal("user04@example.com", docs[0].Email)
	s.Equal("user00@example.com", docs[4].Email)
}
