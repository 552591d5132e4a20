package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCopy_Status(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	holder := "h1"
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.Equal(t, StatusAvailable, (&Copy{}).Status(now))
	assert.Equal(t, StatusOnLoan, (&Copy{HolderID: &holder, DueAt: &future}).Status(now))
	assert.Equal(t, StatusOverdue, (&Copy{HolderID: &holder, DueAt: &past}).Status(now))
	assert.Equal(t, StatusOnLoan, (&Copy{HolderID: &holder, DueAt: &now}).Status(now), "due exactly now is not overdue yet")
}

func TestRefreshToken_Expired(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, (&RefreshToken{Expires: now}).Expired(now), "expiresAt == now counts as expired")
	assert.True(t, (&RefreshToken{Expires: now.Add(-time.Second)}).Expired(now))
	assert.False(t, (&RefreshToken{Expires: now.Add(time.Second)}).Expired(now))
}
