package uid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.True(t, IsValid(a))
	assert.False(t, IsValid("not-a-uuid"))
}

func TestNewWithPrefix(t *testing.T) {
	id := NewWithPrefix("temp_")
	assert.True(t, strings.HasPrefix(id, "temp_"))
	assert.Len(t, id, len("temp_")+32)
	assert.NotContains(t, id, "-")
}
