// Package memory is a process-local registration store for tests and local runs.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"realform/internal/registration/models"
	id "realform/pkg/domain"
	"realform/pkg/platform/sentinel"
)

// InMemory keeps registrations in maps guarded by a single mutex, which
// makes the email check and insert in Create atomic.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.RegistrationID]*models.Registration
	byEmail map[string]id.RegistrationID
}

func New() *InMemory {
	return &InMemory{
		byID:    make(map[id.RegistrationID]*models.Registration),
		byEmail: make(map[string]id.RegistrationID),
	}
}

// Create inserts reg unless its email is already taken (sentinel.ErrAlreadyUsed).
func (s *InMemory) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[reg.Email]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, taken := s.byID[reg.ID]; taken {
		return sentinel.ErrAlreadyUsed
	}
	stored := *reg
	s.byID[reg.ID] = &stored
	s.byEmail[reg.Email] = reg.ID
	return nil
}

// List returns one page ordered by creation time, newest first, plus the total count.
func (s *InMemory) List(_ context.Context, q models.PageQuery) ([]*models.Registration, int, error) {
	s.mu.RLock()
	all := make([]*models.Registration, 0, len(s.byID))
	for _, reg := range s.byID {
		all = append(all, reg)
	}
	s.mu.RUnlock()

	slices.SortFunc(all, newestFirst)

	total := len(all)
	start := min(q.Offset(), total)
	end := min(start+q.Limit, total)

	page := make([]*models.Registration, 0, end-start)
	for _, reg := range all[start:end] {
		cp := *reg
		page = append(page, &cp)
	}
	return page, total, nil
}

// Delete removes the record with registrationID or returns sentinel.ErrNotFound.
func (s *InMemory) Delete(_ context.Context, registrationID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.byID[registrationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, registrationID)
	delete(s.byEmail, reg.Email)
	return nil
}

func newestFirst(a, b *models.Registration) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID.String(), a.ID.String())
}
