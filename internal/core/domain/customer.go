package domain

import (
	"strings"
	"time"
)

const (
	MaxNameLength   = 50
	MaxEmailLength  = 100
	MaxRegionLength = 100
)

// Customer is a business record managed through the CRM.
type Customer struct {
	ID               int64
	FirstName        string
	LastName         string
	Email            string
	Region           string
	RegistrationDate time.Time
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Normalize trims text fields and reduces RegistrationDate to its calendar date.
func (c *Customer) Normalize() {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Region = strings.TrimSpace(c.Region)
	c.RegistrationDate = DateOnly(c.RegistrationDate)
}

// Validate checks required fields and length bounds.
func (c Customer) Validate() error {
	var ve ValidationError
	ve.check("firstName", c.FirstName, MaxNameLength)
	ve.check("lastName", c.LastName, MaxNameLength)
	ve.check("email", c.Email, MaxEmailLength)
	ve.check("region", c.Region, MaxRegionLength)
	if c.RegistrationDate.IsZero() {
		ve.add("registrationDate is required")
	}
	if ve.empty() {
		return nil
	}
	return &ve
}

// DateOnly returns midnight UTC of t's calendar date, as observed in t's own
// location. The zero time is returned unchanged.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CustomerFilter narrows a customer listing. Empty fields impose no constraint;
// all provided constraints must hold.
type CustomerFilter struct {
	// Name matches first or last name, case-insensitive substring.
	Name   string
	Email  string
	Region string
	// RegistrationDate matches the calendar date exactly.
	RegistrationDate *time.Time
}

func (f CustomerFilter) IsEmpty() bool {
	return f.Name == "" && f.Email == "" && f.Region == "" && f.RegistrationDate == nil
}

// Matches applies the filter to a single customer in memory.
func (f CustomerFilter) Matches(c Customer) bool {
	if f.Name != "" && !containsFold(c.FirstName, f.Name) && !containsFold(c.LastName, f.Name) {
		return false
	}
	if f.Email != "" && !containsFold(c.Email, f.Email) {
		return false
	}
	if f.Region != "" && !containsFold(c.Region, f.Region) {
		return false
	}
	if f.RegistrationDate != nil && !DateOnly(c.RegistrationDate).Equal(DateOnly(*f.RegistrationDate)) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
