package ids

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromStringRoundTrip(t *testing.T) {
	id := IDFromString("ember")
	parsed, err := FromString(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestFromStringRejectsShortInput(t *testing.T) {
	_, err := FromString("abcd")
	require.Error(t, err)

	_, err = FromString("not-hex")
	require.Error(t, err)
}

func TestIDJSONIsHex(t *testing.T) {
	id := NewID([]byte("block"))
	b, err := json.Marshal(id)
	require.NoError(t, err)
	require.Equal(t, `"`+id.String()+`"`, string(b))

	var out ID
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, id, out)
	require.False(t, out.IsEmpty())
	require.True(t, Empty.IsEmpty())
}
