package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_Retriable(t *testing.T) {
	cases := []struct {
		kind      Kind
		retriable bool
	}{
		{KindNoServers, false},
		{KindEncodeOverflow, false},
		{KindSendFailed, false},
		{KindRecvFailed, false},
		{KindIDMismatchOnly, true},
		{KindRCodeSoft, true},
		{KindRCodeReserved, true},
		{KindEmptyAnswer, true},
		{KindNXDomain, false},
		{KindParseTypeMismatch, true},
		{KindParseClassMismatch, true},
		{KindParseRDLength, true},
		{KindBudgetExhausted, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.retriable, c.kind.Retriable(), "Kind=%s", c.kind)
	}
}
