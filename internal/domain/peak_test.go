package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindPeak(t *testing.T) {
	g := NewGrid(3, 4)
	g.Set(0, 1, 12)
	g.Set(1, 3, 48.5)
	g.Set(2, 0, 30)

	p := FindPeak(g, []float64{10, 20, 30}, []float64{100, 200, 300, 400})

	assert.True(t, p.OK)
	assert.Equal(t, 1, p.TimeIndex)
	assert.Equal(t, 3, p.RangeIndex)
	assert.Equal(t, 20.0, p.Azimuth)
	assert.Equal(t, 400.0, p.Range)
	assert.Equal(t, 48.5, p.Value)
}

func TestFindPeak_TieBreakRowMajor(t *testing.T) {
	g := NewGrid(3, 3)
	g.Set(2, 0, 40)
	g.Set(0, 2, 40)
	g.Set(1, 1, 39.9)

	p := FindPeak(g, []float64{1, 2, 3}, []float64{10, 20, 30})

	assert.True(t, p.OK)
	assert.Equal(t, 0, p.TimeIndex)
	assert.Equal(t, 2, p.RangeIndex)
}

func TestFindPeak_AllMissing(t *testing.T) {
	p := FindPeak(NewGrid(4, 4), []float64{1, 2, 3, 4}, []float64{1, 2, 3, 4})

	assert.False(t, p.OK)
	assert.True(t, math.IsNaN(p.Azimuth))
	assert.True(t, math.IsNaN(p.Range))
	assert.True(t, math.IsNaN(p.Value))
}

func TestFindPeak_EmptyGrid(t *testing.T) {
	p := FindPeak(Grid{}, nil, nil)
	assert.False(t, p.OK)
}

func TestFindPeak_CoordinatesTooShort(t *testing.T) {
	g := NewGrid(2, 2)
	g.Set(1, 1, 10)

	p := FindPeak(g, []float64{5}, []float64{100, 200})

	assert.False(t, p.OK)
	assert.True(t, math.IsNaN(p.Value))
}
