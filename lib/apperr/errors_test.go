package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("create oia: %w", Conflict("identification %s already registered", "900123456"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "identification 900123456 already registered")
}

func TestUploadAndPersistenceAreDistinct(t *testing.T) {
	cause := errors.New("boom")
	up := Upload("oias/1/ONAC_1.pdf", cause)
	per := Persistence("oias/1/ONAC_1.pdf", cause)

	assert.True(t, errors.Is(up, ErrUpload))
	assert.False(t, errors.Is(up, ErrPersistence))
	assert.True(t, errors.Is(per, ErrPersistence))
	assert.False(t, errors.Is(per, ErrUpload))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(Validation("page must be >= 1")))
	assert.True(t, IsClientError(NotFound("report")))
	assert.True(t, IsClientError(Forbidden("insufficient permissions")))
	assert.False(t, IsClientError(Upload("k", errors.New("x"))))
	assert.False(t, IsClientError(errors.New("driver: bad connection")))
}

func Test_Message_StripsKind(t *testing.T) {
	// Arrange
	wrapped := fmt.Errorf("create oia: %w", Conflict("an OIA with identification %s already exists", "900123456"))
	plain := errors.New("connection reset")

	// Act
	kindMessage := Message(wrapped)
	plainMessage := Message(plain)

	// Assert
	assert.Equal(t, "an OIA with identification 900123456 already exists", kindMessage)
	assert.Equal(t, "connection reset", plainMessage)
	assert.Equal(t, "oia", Message(NotFound("oia")))
}
