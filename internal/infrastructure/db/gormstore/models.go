package gormstore

import (
	"time"

	"github.com/crmapi/crm-service/internal/core/domain"
)

type userRecord struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"size:32;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:10;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

func (r userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type customerRecord struct {
	ID               int64     `gorm:"primaryKey;autoIncrement"`
	FirstName        string    `gorm:"size:50;not null"`
	LastName         string    `gorm:"size:50;not null"`
	Email            string    `gorm:"size:100;not null"`
	Region           string    `gorm:"size:100;not null"`
	RegistrationDate time.Time `gorm:"not null;index"`
}

func (customerRecord) TableName() string { return "customers" }

func toCustomerRecord(c *domain.Customer) customerRecord {
	return customerRecord{
		ID:               c.ID,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Email:            c.Email,
		Region:           c.Region,
		RegistrationDate: domain.DateOnly(c.RegistrationDate),
	}
}

func (r customerRecord) toDomain() domain.Customer {
	return domain.Customer{
		ID:               r.ID,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Region:           r.Region,
		RegistrationDate: domain.DateOnly(r.RegistrationDate.UTC()),
	}
}
