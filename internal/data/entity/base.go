package entity

import (
	"time"

	"github.com/google/uuid"
)

// Base is for soft-deletable catalog and account rows.
type Base struct {
	ID        uuid.UUID  `db:"id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// BaseNoDelete is for bookings and payments, which only ever reach a terminal status.
type BaseNoDelete struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type BaseSimple struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}
