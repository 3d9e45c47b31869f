package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDPrefersExplicitID(t *testing.T) {
	t.Setenv(EnvInstanceID, "api-7")
	t.Setenv("HOSTNAME", "pod-abc")
	assert.Equal(t, "api-7", GetID())
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv(EnvInstanceID, " ")
	t.Setenv("HOSTNAME", "pod-abc")
	assert.Equal(t, "pod-abc", GetID())

	t.Setenv("HOSTNAME", "")
	assert.Equal(t, "local", GetID())
}
