package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ObiAU/newsfeed/internal/config"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1", placeholder(1))
	assert.Equal(t, "$1, $2, $3", placeholders(3))
	assert.Equal(t, "", placeholders(0))
}

func TestVectorConversion(t *testing.T) {
	assert.Nil(t, toVector(nil))
	assert.Nil(t, fromVector(nil))

	v := toVector([]float64{0.5, -1, 0.25})
	assert.Equal(t, []float32{0.5, -1, 0.25}, v.Slice())
	assert.Equal(t, []float64{0.5, -1, 0.25}, fromVector(v))
}

func TestNewDB_RequiresDSN(t *testing.T) {
	_, err := NewDB(&config.Config{})
	assert.Error(t, err)
}
