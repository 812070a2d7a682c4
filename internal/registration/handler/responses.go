package handler

import (
	"time"

	"realform/internal/registration/models"
)

// MessageResponse is the body of successful mutations.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegistrationResponse is the admin view of a record. It never carries the
// password digest.
type RegistrationResponse struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	Email             string    `json:"email"`
	DateOfBirth       time.Time `json:"dateOfBirth"`
	Gender            string    `json:"gender"`
	Biography         string    `json:"biography"`
	ProfilePictureURL string    `json:"profilePictureUrl"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PageResponse is one page of the admin listing.
type PageResponse struct {
	Docs        []RegistrationResponse `json:"docs"`
	TotalDocs   int                    `json:"totalDocs"`
	Limit       int                    `json:"limit"`
	Page        int                    `json:"page"`
	TotalPages  int                    `json:"totalPages"`
	HasPrevPage bool                   `json:"hasPrevPage"`
	HasNextPage bool                   `json:"hasNextPage"`
	PrevPage    *int                   `json:"prevPage"`
	NextPage    *int                   `json:"nextPage"`
}

func toRegistrationResponse(reg *models.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:                reg.ID.String(),
		FirstName:         reg.FirstName,
		LastName:          reg.LastName,
		Email:             reg.Email,
		DateOfBirth:       reg.DateOfBirth,
		Gender:            reg.Gender,
		Biography:         reg.Biography,
		ProfilePictureURL: reg.ProfilePictureURL,
		CreatedAt:         reg.CreatedAt,
	}
}

func toPageResponse(page *models.Page) PageResponse {
	docs := make([]RegistrationResponse, 0, len(page.Docs))
	for _, reg := range page.Docs {
		docs = append(docs, toRegistrationResponse(reg))
	}
	return PageResponse{
		Docs:        docs,
		TotalDocs:   page.TotalDocs,
		Limit:       page.Limit,
		Page:        page.Page,
		TotalPages:  page.TotalPages,
		HasPrevPage: page.HasPrevPage,
		HasNextPage: page.HasNextPage,
		PrevPage:    page.PrevPage,
		NextPage:    page.NextPage,
	}
}
