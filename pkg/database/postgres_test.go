package database

import (
	"testing"

	"service-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := DSN(utils.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		Name:     "booking",
		User:     "app",
		Password: "p@ss word",
	})
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/booking?sslmode=disable", dsn)
}
