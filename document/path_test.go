package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativePath(t *testing.T) {
	rel, err := RelativePath("projects/p/databases/(default)/documents/users/u1")
	require.NoError(t, err)
	assert.Equal(t, "users/u1", rel)

	rel, err = RelativePath("/users/u1/")
	require.NoError(t, err)
	assert.Equal(t, "users/u1", rel)

	_, err = RelativePath("projects/p/databases/(default)/documents/")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = RelativePath("")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestPathValidation(t *testing.T) {
	assert.NoError(t, ValidateCollection("users"))
	assert.NoError(t, ValidateCollection("users/u1/notifications"))
	assert.ErrorIs(t, ValidateCollection("users/u1"), ErrInvalidPath)
	assert.ErrorIs(t, ValidateCollection(""), ErrInvalidPath)
	assert.ErrorIs(t, ValidateCollection("users//x"), ErrInvalidPath)

	assert.NoError(t, ValidateDocument("users/u1"))
	assert.ErrorIs(t, ValidateDocument("users"), ErrInvalidPath)
	assert.ErrorIs(t, ValidateDocument("users/.."), ErrInvalidPath)
}

func TestSplitCollection(t *testing.T) {
	parent, id, err := SplitCollection("users/u1/notifications")
	require.NoError(t, err)
	assert.Equal(t, "users/u1", parent)
	assert.Equal(t, "notifications", id)

	parent, id, err = SplitCollection("users")
	require.NoError(t, err)
	assert.Equal(t, "", parent)
	assert.Equal(t, "users", id)
}

func TestResourceNames(t *testing.T) {
	assert.Equal(t, "projects/p/databases/d", DatabaseName("p", "d"))
	assert.Equal(t, "projects/p/databases/d/documents/users/u1", ResourceName("p", "d", "/users/u1"))
	assert.Equal(t, "u1", ID("projects/p/databases/d/documents/users/u1"))
	assert.Equal(t, "users", Parent("users/u1"))
}
