package entity

import "github.com/google/uuid"

type Address struct {
	BaseSimple
	CustomerID uuid.UUID `db:"customer_id"`
	Label      string    `db:"label"`
	Line1      string    `db:"line1"`
	Line2      *string   `db:"line2"`
	City       string    `db:"city"`
	State      string    `db:"state"`
	PostalCode string    `db:"postal_code"`
}
