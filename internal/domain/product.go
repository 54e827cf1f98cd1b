package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents an item for sale at the register
type Product struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Price          float64    `json:"price" db:"price"`
	Stock          int        `json:"stock" db:"stock"`
	LastModifiedBy *uuid.UUID `json:"last_modified_by,omitempty" db:"last_modified_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
