package nsisvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func evalBinary(t *testing.T, op string, arg1, arg2 string) string {
	t.Helper()
	state := NewState(nil)
	state.Push(arg2)
	state.Push(arg1)
	state.Push(op)
	return EvaluateInt64Op(state)
}

func TestInt64OpArithmetic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "10", evalBinary(t, "+", "5", "5"))
	assert.Equal(t, "824001909885", evalBinary(t, "*", "526355", "1565487"))
	assert.Equal(t, "1832816499616606", evalBinary(t, "/", "5498449498849818", "3"))
	assert.Equal(t, "118", evalBinary(t, "%", "619736053874048620", "157"))
}

func TestInt64OpDivisionByZero(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0", evalBinary(t, "/", "5", "0"))
	assert.Equal(t, "0", evalBinary(t, "%", "5", "0"))
}

func TestInt64OpShifts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "4611686018427387904", evalBinary(t, "<<", "1", "62"))
	assert.Equal(t, "1", evalBinary(t, ">>", "4611686018427387904", "62"))
	// logical shift right of i64 min
	assert.Equal(t, "4611686018427387904", evalBinary(t, ">>>", "-9223372036854775808", "1"))
	// arithmetic shift keeps the sign
	assert.Equal(t, "-4611686018427387904", evalBinary(t, ">>", "-9223372036854775808", "1"))
}

func TestInt64OpBitwiseAndLogical(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "271581296", evalBinary(t, "&", "305419896", "4042322160"))
	assert.Equal(t, "1", evalBinary(t, "^", "1", "0"))
	assert.Equal(t, "1", evalBinary(t, "|", "1", "0"))
	assert.Equal(t, "1", evalBinary(t, "||", "1", "0"))
	assert.Equal(t, "0", evalBinary(t, "&&", "1", "0"))
}

func TestInt64OpComparisons(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1", evalBinary(t, "<", "9302157012375", "570197509190760"))
	assert.Equal(t, "0", evalBinary(t, ">", "5168", "89873"))
	assert.Equal(t, "1", evalBinary(t, "=", "189189", "189189"))
}

func TestInt64OpUnary(t *testing.T) {
	t.Parallel()

	state := NewState(nil)
	state.Push("156545668489")
	state.Push("~")
	assert.Equal(t, "-156545668490", EvaluateInt64Op(state))

	state.Reset()
	state.Push("1")
	state.Push("!")
	assert.Equal(t, "0", EvaluateInt64Op(state))

	state.Reset()
	state.Push("0")
	state.Push("!")
	assert.Equal(t, "1", EvaluateInt64Op(state))
}

func TestInt64OpWrapAround(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-9223372036854775808", evalBinary(t, "+", "9223372036854775807", "1"))
	assert.Equal(t, "-9223372036854775808", evalBinary(t, "/", "-9223372036854775808", "-1"))
}

func TestParseInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"-17", -17},
		{"0x10", 16},
		{"0X10", 16},
		{"010", 8},
		{"0", 0},
		{"", 0},
		{"junk", 0},
		{"9223372036854775807", 9223372036854775807},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseInt(tt.in), "input %q", tt.in)
	}
}
