package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimOldestStaleQuerySkipsLockedRows(t *testing.T) {
	subquery, outer, found := strings.Cut(claimOldestStaleQuery, ") AND")
	assert.True(t, found)
	assert.Contains(t, subquery, "FOR UPDATE SKIP LOCKED")
	assert.Contains(t, subquery, "ORDER BY created_at ASC")
	assert.Contains(t, outer, "assigned_to IS NULL")
	assert.Contains(t, outer, "status='open'")
}
