package handler

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/crmapi/crm-service/internal/core/domain"
)

const dateLayout = "2006-01-02"

// civilDate accepts a plain date or a full timestamp and keeps only the
// calendar date.
type civilDate struct {
	time.Time
}

var acceptedDateLayouts = []string{dateLayout, time.RFC3339Nano, "2006-01-02T15:04:05"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range acceptedDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return domain.DateOnly(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (d *civilDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

type customerRequest struct {
	ID               int64     `json:"id"`
	FirstName        string    `json:"firstName"        validate:"required,max=50"`
	LastName         string    `json:"lastName"         validate:"required,max=50"`
	Email            string    `json:"email"            validate:"required,max=100"`
	Region           string    `json:"region"           validate:"required,max=100"`
	RegistrationDate civilDate `json:"registrationDate" swaggertype:"string" example:"2024-03-05"`
}

func (r customerRequest) toDomain() domain.Customer {
	return domain.Customer{
		ID:               r.ID,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Region:           r.Region,
		RegistrationDate: r.RegistrationDate.Time,
	}
}

type customerResponse struct {
	ID               int64  `json:"id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Region           string `json:"region"`
	RegistrationDate string `json:"registrationDate" example:"2024-03-05"`
}

func toCustomerResponse(c domain.Customer) customerResponse {
	return customerResponse{
		ID:               c.ID,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Email:            c.Email,
		Region:           c.Region,
		RegistrationDate: c.RegistrationDate.Format(dateLayout),
	}
}

func toCustomerResponses(cs []domain.Customer) []customerResponse {
	out := make([]customerResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCustomerResponse(c))
	}
	return out
}

// ErrorResponse is the canonical error envelope for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
