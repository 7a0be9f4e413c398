package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromServerList_ParsesHostPort(t *testing.T) {
	ring, err := FromServerList([]string{"cld1.example.com:30001", "cld2.example.com:30001"}, 30001, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, ring.Len())
	assert.Equal(t, "cld1.example.com:30001", ring.Active().Addr())
}

func TestFromServerList_AppliesDefaultPortWhenMissing(t *testing.T) {
	ring, err := FromServerList([]string{"cld1.example.com"}, 30001, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(30001), ring.Active().Port)
}

func TestFromServerList_EmptyListRejected(t *testing.T) {
	_, err := FromServerList(nil, 30001, 0)
	require.Error(t, err)
}

func TestNewRing_TruncatesToCapacity(t *testing.T) {
	hosts := make([]Host, 0, 20)
	for i := 0; i < 20; i++ {
		hosts = append(hosts, Host{Name: "h", Port: uint16(i)})
	}
	ring, err := NewRing(hosts, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, ring.Len())
}

func TestRotate_WrapsAround(t *testing.T) {
	ring, err := FromServerList([]string{"a:1", "b:1", "c:1"}, 1, 0)
	require.NoError(t, err)

	assert.Equal(t, "a", ring.Active().Name)
	assert.Equal(t, "b", ring.Rotate().Name)
	assert.Equal(t, "c", ring.Rotate().Name)
	assert.Equal(t, "a", ring.Rotate().Name)
}
