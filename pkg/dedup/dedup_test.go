package dedup_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/device-agent/pkg/dedup"
)

func TestShouldProcessOncePerTTL(t *testing.T) {
	d := dedup.New(time.Minute, 100)
	id := dedup.PayloadID([]byte(`{"prediction":1}`))

	require.True(t, d.ShouldProcess(id))
	require.False(t, d.ShouldProcess(id))
}

func TestExpiredEntryProcessesAgain(t *testing.T) {
	d := dedup.New(10*time.Millisecond, 100)
	id := dedup.PayloadID([]byte("x"))

	require.True(t, d.ShouldProcess(id))
	time.Sleep(20 * time.Millisecond)
	require.True(t, d.ShouldProcess(id))
}

func TestEmptyIDAlwaysProcesses(t *testing.T) {
	d := dedup.New(time.Minute, 100)
	require.True(t, d.ShouldProcess(""))
	require.True(t, d.ShouldProcess(""))
}

func TestCapacityStaysBounded(t *testing.T) {
	d := dedup.New(time.Minute, 8)
	for i := 0; i < 100; i++ {
		require.True(t, d.ShouldProcess(dedup.PayloadID([]byte{byte(i)})))
	}
	// the newest id is always tracked, even after evictions
	require.False(t, d.ShouldProcess(dedup.PayloadID([]byte{99})))
}

func TestPayloadIDStable(t *testing.T) {
	a := dedup.PayloadID([]byte("payload"))
	b := dedup.PayloadID([]byte("payload"))
	c := dedup.PayloadID([]byte("other"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
