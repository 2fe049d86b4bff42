package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsEmbeddedVersion(t *testing.T) {
	assert.Equal(t, Version, Get())
	assert.NotEmpty(t, Get())
}
