package dirent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	names := []string{"foo", "bar.txt", "a-much-longer-file-name.dat", "x"}
	buf := Encode(names)

	got, err := Names(buf)
	require.NoError(t, err)
	assert.Equal(t, names, got)
}

func TestCount(t *testing.T) {
	buf := Encode([]string{"one", "two", "three"})
	n, err := Count(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEmptyBuffer(t *testing.T) {
	names, err := Names(nil)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestTruncatedRecordRejected(t *testing.T) {
	buf := Encode([]string{"hello"})
	_, err := Names(buf[:3])
	assert.Error(t, err)
}

func TestRecordExceedingRemainingRejected(t *testing.T) {
	// Claim a 100-byte name but supply only a few bytes of payload.
	buf := []byte{100, 0, 'a', 'b', 'c'}
	_, err := Names(buf)
	assert.Error(t, err)
}

func TestAlignment(t *testing.T) {
	buf := Encode([]string{"ab"}) // 2(header)+2(name)=4, aligned to 8
	assert.Len(t, buf, 8)

	buf2 := Encode([]string{"abcdef"}) // 2+6=8, already aligned
	assert.Len(t, buf2, 8)

	buf3 := Encode([]string{"abcdefg"}) // 2+7=9, aligned to 16
	assert.Len(t, buf3, 16)
}
