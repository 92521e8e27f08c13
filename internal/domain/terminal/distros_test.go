package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func encodeUTF16LE(t *testing.T, s string, bom bool) []byte {
	t.Helper()
	policy := unicode.IgnoreBOM
	if bom {
		policy = unicode.UseBOM
	}
	out, err := unicode.UTF16(unicode.LittleEndian, policy).NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return out
}

func TestParseDistroList(t *testing.T) {
	listing := "Ubuntu-22.04\r\ndocker-desktop\r\n\r\nDebian\r\ndocker-desktop-data\r\n"

	for _, bom := range []bool{false, true} {
		got := parseDistroList(encodeUTF16LE(t, listing, bom))
		assert.Equal(t, []string{"Ubuntu-22.04", "Debian"}, got)
	}
}

func TestParseDistroListEmpty(t *testing.T) {
	got := parseDistroList(nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}
