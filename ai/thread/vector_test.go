package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"zero norm", []float32{0, 0}, []float32{1, 0}, 0.0},
		{"both empty", nil, nil, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestMeanVector(t *testing.T) {
	t.Run("averages", func(t *testing.T) {
		mean := MeanVector([][]float32{{1, 0}, {0, 1}})
		require.Len(t, mean, 2)
		assert.InDelta(t, 0.5, mean[0], 1e-6)
		assert.InDelta(t, 0.5, mean[1], 1e-6)
	})

	t.Run("skips mismatched lengths", func(t *testing.T) {
		mean := MeanVector([][]float32{{1, 0}, {1, 1, 1}})
		require.Len(t, mean, 2)
		assert.InDelta(t, 1.0, mean[0], 1e-6)
	})

	t.Run("nil on no vectors", func(t *testing.T) {
		assert.Nil(t, MeanVector(nil))
		assert.Nil(t, MeanVector([][]float32{}))
	})
}

func TestIsZeroVector(t *testing.T) {
	assert.True(t, IsZeroVector(nil))
	assert.True(t, IsZeroVector([]float32{0, 0, 0}))
	assert.False(t, IsZeroVector([]float32{0, 0.001, 0}))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.7, Clamp01(0.7))
}
