package output

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type hintedError struct {
	msg  string
	hint string
}

func (e *hintedError) Error() string { return e.msg }
func (e *hintedError) Hint() string  { return e.hint }

func TestHint_ErrorCarriesItsOwn(t *testing.T) {
	err := &hintedError{msg: "payment failed", hint: "add funds"}
	assert.Equal(t, "add funds", Hint(err))
}

func TestHint_WrappedHintedError(t *testing.T) {
	inner := &hintedError{msg: "payment failed", hint: "add funds"}
	assert.Equal(t, "add funds", Hint(errors.Join(errors.New("outer"), inner)))
}

func TestHint_BalanceKeywords(t *testing.T) {
	hint := Hint(errors.New("provider said: insufficient balance"))
	assert.Contains(t, hint, "add funds")
}

func TestHint_AuthKeywords(t *testing.T) {
	hint := Hint(errors.New("provider said: invalid token"))
	assert.Contains(t, hint, "paygit auth login")

	hint = Hint(errors.New("request was unauthorized"))
	assert.Contains(t, hint, "paygit auth login")
}

func TestHint_NoMatch(t *testing.T) {
	assert.Empty(t, Hint(errors.New("disk exploded")))
	assert.Empty(t, Hint(nil))
}
