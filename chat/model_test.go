package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateOutput_ShortUnchanged(t *testing.T) {
	assert.Equal(t, "", TruncateOutput(""))
	assert.Equal(t, "short output", TruncateOutput("short output"))

	exact := strings.Repeat("a", MaxToolOutputLen)
	assert.Equal(t, exact, TruncateOutput(exact))
}

func TestTruncateOutput_LongTruncated(t *testing.T) {
	long := strings.Repeat("a", MaxToolOutputLen+500)
	got := TruncateOutput(long)

	assert.Equal(t, strings.Repeat("a", MaxToolOutputLen)+"...(truncated)", got)
}

func TestTruncateOutput_UTF8Boundary(t *testing.T) {
	// Place a three-byte rune straddling the cut point so a naive byte slice
	// would split it.
	prefix := strings.Repeat("a", MaxToolOutputLen-1)
	long := prefix + "世界の出力" + strings.Repeat("b", 100)

	got := TruncateOutput(long)
	assert.True(t, strings.HasSuffix(got, "...(truncated)"))

	kept := strings.TrimSuffix(got, "...(truncated)")
	assert.True(t, utf8.ValidString(kept))
	assert.LessOrEqual(t, len(kept), MaxToolOutputLen)
}
