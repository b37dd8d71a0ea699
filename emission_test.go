package cachefall

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestEmission_Emit(t *testing.T) {
	token := newToken()
	q := NewQuery[string, string](token, []string{"a"})
	d := NewDataSet[string, string](token, map[string]string{"a": "1"})

	reqs, err := drain(Emit[string, string](q, d))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(reqs))
	assert.Equal(t, "query", reqs[0].name())
	assert.Equal(t, "dataset", reqs[1].name())
}

func TestEmission_None(t *testing.T) {
	reqs, err := drain(None[string, string]())
	assert.NoError(t, err)
	assert.Equal(t, 0, len(reqs))
}

func TestEmission_EmitError(t *testing.T) {
	errBoom := errors.New("boom")

	reqs, err := drain(EmitError[string, string](errBoom))
	assert.IsError(t, err, errBoom)
	assert.Equal(t, 0, len(reqs))
}

func TestEmission_DrainNil(t *testing.T) {
	reqs, err := drain[string, string](nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(reqs))
}

func TestEmission_MidStreamFailureKeepsProduced(t *testing.T) {
	errBoom := errors.New("boom")
	token := newToken()

	em := &tailErrEmission{
		reqs: []Request[string, string]{
			NewQuery[string, string](token, []string{"a"}),
		},
		err: errBoom,
	}

	reqs, err := drain[string, string](em)
	assert.IsError(t, err, errBoom)
	assert.Equal(t, 1, len(reqs))
}
