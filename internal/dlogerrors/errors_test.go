package dlogerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorUnwrap(t *testing.T) {
	sentinel := errors.New("tree-sitter panic")
	pe := &ParseError{Path: "a.cpp", Msg: "recovered from panic", Err: sentinel}
	assert.True(t, errors.Is(pe, sentinel))
	assert.Contains(t, pe.Error(), "a.cpp")
}

func TestMultiErrorAggregation(t *testing.T) {
	m := &MultiError{}
	assert.True(t, m.Empty())
	assert.Nil(t, m.ErrOrNil())

	m.Add(nil)
	assert.True(t, m.Empty())

	e1 := &ParseError{Path: "a.cpp", Msg: "x"}
	e2 := &AnalysisError{Path: "b.go", Msg: "y"}
	m.Add(e1)
	m.Add(e2)

	assert.False(t, m.Empty())
	assert.True(t, errors.Is(m.ErrOrNil(), e1))
	assert.True(t, errors.Is(m.ErrOrNil(), e2))
}

func TestOwnershipErrorKind(t *testing.T) {
	oe := &OwnershipError{Path: "/tmp/x.cpp", Level: "strict"}
	assert.Contains(t, oe.Error(), "strict")
}
