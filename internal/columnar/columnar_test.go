package columnar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint64CodecRoundTrip(t *testing.T) {
	c := Uint64Codec{}
	want := []uint64{7, 0, 1 << 40, 3}

	encoded, err := c.Encode(want)
	require.NoError(t, err)

	got, err := c.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestUint64CodecEmpty(t *testing.T) {
	c := Uint64Codec{}
	encoded, err := c.Encode(nil)
	require.NoError(t, err)

	got, err := c.Decode(encoded)
	require.NoError(t, err)
	require.Empty(t, got)
}
