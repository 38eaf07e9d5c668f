package errors

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelWrapping(t *testing.T) {
	err := NotFoundf("graph %d", 7)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsInvalid(err))
	assert.Contains(t, err.Error(), "graph 7")

	wrapped := Wrap(err, "load view")
	assert.True(t, IsNotFound(wrapped))
	assert.Contains(t, wrapped.Error(), "load view")
}

func TestInvalidAndConflict(t *testing.T) {
	assert.True(t, IsInvalid(Invalidf("name is blank")))
	assert.True(t, IsConflict(Conflictf("tag %q exists", "x")))
	assert.False(t, IsConflict(nil))
}

func TestWrapPreservesStdSentinels(t *testing.T) {
	err := Wrap(sql.ErrNoRows, "select node")
	assert.True(t, Is(err, sql.ErrNoRows))
}

func TestHints(t *testing.T) {
	err := WithHint(Invalidf("weight"), "weights are disabled for this graph")
	assert.Contains(t, FlattenHints(err), "weights are disabled")
}
