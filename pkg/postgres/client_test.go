package postgres

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Message: "duplicate key value"}
	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert user: %w", dup)))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(fmt.Errorf("other")))
}

func TestNewClientRequiresDSN(t *testing.T) {
	_, err := NewClient("")
	assert.EqualError(t, err, "dsn is required")
}
