package progress

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReaderEmitsProgressAndDone(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	src := bytes.NewReader([]byte("hello world"))
	r := NewReader(src, bus, "tx-1", "/data/a.txt", 11)

	buf := make([]byte, 4)
	_, err := r.Read(buf)
	require.NoError(t, err)

	select {
	case evt := <-ch:
		require.Equal(t, "tx-1", evt.TransactionID)
		require.Equal(t, int64(4), evt.ReadBytes)
		require.False(t, evt.Done)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}

	_, err = io.ReadAll(r)
	require.NoError(t, err)

	var last DownloadProgress
	for {
		select {
		case evt := <-ch:
			last = evt
			if evt.Done {
				goto done
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for done event")
		}
	}
done:
	require.True(t, last.Done)
	require.Equal(t, int64(11), last.ReadBytes)
}

func TestReaderFailEmitsError(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	r := NewReader(bytes.NewReader(nil), bus, "tx-2", "/data/b.txt", 100)
	r.Fail(errors.New("client disconnected"))

	select {
	case evt := <-ch:
		require.True(t, evt.Done)
		require.Equal(t, "client disconnected", evt.Error)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for failure event")
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewBus()
	bus.bufferSize = 1
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.publish(DownloadProgress{ReadBytes: 1})
	bus.publish(DownloadProgress{ReadBytes: 2})
	bus.publish(DownloadProgress{ReadBytes: 3})

	require.Len(t, ch, 1)
}

func TestSubscribeAndCancel(t *testing.T) {
	bus := NewBus()
	require.Equal(t, 0, bus.SubscriberCount())

	_, cancel := bus.Subscribe()
	require.Equal(t, 1, bus.SubscriberCount())

	cancel()
	require.Equal(t, 0, bus.SubscriberCount())
}

func TestThrottleSuppressesRapidRepeats(t *testing.T) {
	var calls []int
	fn := Throttle(50*time.Millisecond, func(p int) { calls = append(calls, p) })

	fn(1)
	fn(2)
	fn(3)
	require.Len(t, calls, 1, "rapid successive changes within the interval should collapse to one")

	time.Sleep(60 * time.Millisecond)
	fn(50)
	require.Len(t, calls, 2)
}

func TestThrottleAlwaysFiresAtCompletion(t *testing.T) {
	var calls []int
	fn := Throttle(time.Hour, func(p int) { calls = append(calls, p) })

	fn(1)
	fn(100)

	require.Contains(t, calls, 100)
}
