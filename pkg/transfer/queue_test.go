package transfer

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droptea/droptea/pkg/logging"
	"github.com/droptea/droptea/pkg/peers"
)

type sendCall struct {
	ip         string
	port       uint16
	path       string
	taskID     string
	deviceName string
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sendCall
	err   error
	sent  chan sendCall
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan sendCall, 16)}
}

func (f *fakeSender) SendFile(ip string, port uint16, path, taskID, deviceName string) error {
	f.mu.Lock()
	call := sendCall{ip: ip, port: port, path: path, taskID: taskID, deviceName: deviceName}
	f.calls = append(f.calls, call)
	err := f.err
	f.mu.Unlock()

	f.sent <- call
	return err
}

func (f *fakeSender) wait(t *testing.T) sendCall {
	t.Helper()
	select {
	case call := <-f.sent:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send")
		return sendCall{}
	}
}

func tempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	return path
}

func testPeer() peers.Peer {
	return peers.Peer{ID: "peer-1", Name: "Bobs-Desktop", IP: "192.168.1.20", Port: 9000}
}

func TestQueueEnqueueSends(t *testing.T) {
	sender := newFakeSender()
	q := NewQueue(sender, "Alices-Laptop", logging.Nop())
	defer q.Close()

	path := tempFile(t)
	taskID, err := q.Enqueue(path, testPeer())
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	call := sender.wait(t)
	assert.Equal(t, "192.168.1.20", call.ip)
	assert.Equal(t, uint16(9000), call.port)
	assert.Equal(t, path, call.path)
	assert.Equal(t, taskID, call.taskID)
	assert.Equal(t, "Alices-Laptop", call.deviceName)
}

func TestQueueUniqueTaskIDs(t *testing.T) {
	sender := newFakeSender()
	q := NewQueue(sender, "dev", logging.Nop())
	defer q.Close()

	path := tempFile(t)
	seen := map[string]bool{}
	for range 5 {
		taskID, err := q.Enqueue(path, testPeer())
		require.NoError(t, err)
		assert.False(t, seen[taskID])
		seen[taskID] = true
		sender.wait(t)
	}
}

func TestQueueMissingFile(t *testing.T) {
	q := NewQueue(newFakeSender(), "dev", logging.Nop())
	defer q.Close()

	_, err := q.Enqueue(filepath.Join(t.TempDir(), "missing.txt"), testPeer())
	assert.Error(t, err)
}

func TestQueueRejectsDirectory(t *testing.T) {
	q := NewQueue(newFakeSender(), "dev", logging.Nop())
	defer q.Close()

	_, err := q.Enqueue(t.TempDir(), testPeer())
	assert.ErrorContains(t, err, "directory")
}

func TestQueueSendErrorDoesNotStopWorker(t *testing.T) {
	sender := newFakeSender()
	sender.err = errors.New("connection refused")
	q := NewQueue(sender, "dev", logging.Nop())
	defer q.Close()

	path := tempFile(t)
	_, err := q.Enqueue(path, testPeer())
	require.NoError(t, err)
	sender.wait(t)

	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()

	_, err = q.Enqueue(path, testPeer())
	require.NoError(t, err)
	sender.wait(t)
}

func TestQueueEnqueueAfterClose(t *testing.T) {
	q := NewQueue(newFakeSender(), "dev", logging.Nop())
	q.Close()

	_, err := q.Enqueue(tempFile(t), testPeer())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueueCloseIdempotent(t *testing.T) {
	q := NewQueue(newFakeSender(), "dev", logging.Nop())
	q.Close()
	assert.NotPanics(t, q.Close)
}
