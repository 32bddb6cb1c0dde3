package api

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepIndex_ScalarAndPath(t *testing.T) {
	s := Scalar(3)
	assert.True(t, s.IsScalar())
	assert.Equal(t, 3, s.Position())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "3", s.String())

	p := Path(1, 0, 2)
	assert.False(t, p.IsScalar())
	assert.Equal(t, 1, p.Position())
	assert.Equal(t, 2, p.Last())
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, "[1,0,2]", p.String())

	assert.True(t, Path(4).IsScalar(), "single component collapses to a scalar")
	assert.True(t, Path(4).Equal(Scalar(4)))
}

func TestStepIndex_ZeroValueIsScalarZero(t *testing.T) {
	var idx StepIndex
	assert.True(t, idx.Equal(Scalar(0)))
}

func TestParsePath_RejectsMalformed(t *testing.T) {
	for _, c := range [][]int{nil, {1, 0}, {1, 0, 0, 1}, {1, -1, 0}} {
		_, err := ParsePath(c)
		require.Error(t, err, "components %v", c)
		assert.True(t, errors.Is(err, ErrInvalidStepIndex))
	}
}

func TestStepIndex_DerivationsDoNotAlias(t *testing.T) {
	p := Path(1, 0, 0)
	next := p.WithLast(1)
	entered := p.Enter(2)

	assert.Equal(t, "[1,0,0]", p.String())
	assert.Equal(t, "[1,0,1]", next.String())
	assert.Equal(t, "[1,0,0,2,0]", entered.String())

	c := p.Components()
	c[0] = 99
	assert.Equal(t, 1, p.Position())

	assert.Equal(t, "[2,1,0]", Scalar(2).Enter(1).String())
}

func TestStepIndex_JSON(t *testing.T) {
	h := History{Scalar(0), Path(1, 0, 1), Scalar(2)}
	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `[0,[1,0,1],2]`, string(data))

	var back History
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 3)
	for i := range h {
		assert.True(t, h[i].Equal(back[i]), "entry %d: %v != %v", i, h[i], back[i])
	}

	var bad StepIndex
	assert.Error(t, json.Unmarshal([]byte(`[1,0]`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`-1`), &bad))
}

func TestHistory_CurrentAndPrevious(t *testing.T) {
	var empty History
	assert.True(t, empty.Current().Equal(Scalar(0)))
	_, ok := empty.Previous()
	assert.False(t, ok)

	h := History{Scalar(0), Scalar(1)}
	assert.True(t, h.Current().Equal(Scalar(1)))
	prev, ok := h.Previous()
	require.True(t, ok)
	assert.True(t, prev.Equal(Scalar(0)))

	c := h.Clone()
	c[0] = Scalar(7)
	assert.True(t, h[0].Equal(Scalar(0)))
}
