package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorChaining(t *testing.T) {
	ErrBase := New("base error")
	assert.Equal(t, "base error", ErrBase.Error())
	assert.Equal(t, "derived", ErrBase.New("derived").Error())
	assert.ErrorIs(t, ErrBase, ErrBase)

	ErrKind := ErrBase.New("storage failure")
	assert.Equal(t, "storage failure", ErrKind.Error())
	assert.ErrorIs(t, ErrKind, ErrBase)

	ErrOther := New("other error")
	ErrOtherMsg := ErrOther.Msg("other error detail")
	wrapped := ErrKind.Err(ErrOtherMsg)
	assert.Equal(t, "storage failure", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrBase)
	assert.ErrorIs(t, wrapped, ErrKind)
	assert.ErrorIs(t, wrapped, ErrOther)
	assert.ErrorIs(t, wrapped, ErrOtherMsg)

	goErr := errors.New("plain error")
	wrapped = ErrKind.Err(goErr)
	assert.Equal(t, "storage failure", wrapped.Error())
	assert.ErrorIs(t, wrapped, goErr)

	wrapped = ErrKind.MsgErr("contextual message", goErr)
	assert.Equal(t, "contextual message", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrBase)
	assert.ErrorIs(t, wrapped, goErr)

	errA := fmt.Errorf("first cause")
	errB := fmt.Errorf("second cause")
	wrapped = ErrKind.Err(errA, errB)
	assert.ErrorIs(t, wrapped, errA)
	assert.ErrorIs(t, wrapped, errB)
}

func TestErrorStatusCode(t *testing.T) {
	ErrBad := New("bad input").SetStatusCode(http.StatusBadRequest)
	assert.Equal(t, http.StatusBadRequest, ErrBad.StatusCode())

	// derived errors inherit the status code
	derived := ErrBad.New("field out of range")
	assert.Equal(t, http.StatusBadRequest, derived.StatusCode())

	// and can override it
	conflict := derived.SetStatusCode(http.StatusConflict)
	assert.Equal(t, http.StatusConflict, conflict.StatusCode())
	assert.Equal(t, http.StatusBadRequest, derived.StatusCode())
}

func TestErrorAllExpansion(t *testing.T) {
	base := New("validation failed").SetExpandError(true)
	wrapped := base.Err(errors.New("ra out of range"), errors.New("dec out of range"))
	assert.Equal(t, "validation failed; validation failed; ra out of range; dec out of range", wrapped.ErrorAll())

	collapsed := wrapped.SetExpandError(false)
	assert.Equal(t, "validation failed", collapsed.ErrorAll())
}
