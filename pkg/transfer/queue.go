// Package transfer queues outgoing file sends and feeds them to the
// core one at a time, so a burst of sends from the shell or the feed
// never races inside the core's connection setup.
package transfer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/droptea/droptea/pkg/peers"
)

var (
	ErrClosed    = errors.New("transfer: queue closed")
	ErrQueueFull = errors.New("transfer: queue full")
)

// Sender pushes one file to a remote peer. Satisfied by the engine
// handle.
type Sender interface {
	SendFile(ip string, port uint16, path, taskID, deviceName string) error
}

// Job is one queued outgoing send.
type Job struct {
	TaskID string
	Path   string
	Peer   peers.Peer
	Queued time.Time
}

// Queue runs a single worker over queued sends. Enqueue is safe for
// concurrent use; outcomes arrive as core events, not return values.
type Queue struct {
	sender     Sender
	deviceName string
	log        *slog.Logger

	jobs chan Job
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewQueue creates a Queue and starts its worker.
func NewQueue(sender Sender, deviceName string, log *slog.Logger) *Queue {
	q := &Queue{
		sender:     sender,
		deviceName: deviceName,
		log:        log,
		jobs:       make(chan Job, 16),
		done:       make(chan struct{}),
	}
	q.wg.Go(q.run)
	return q
}

// Enqueue validates path and queues a send to peer, returning the task
// id that subsequent core events for this transfer will carry.
func (q *Queue) Enqueue(path string, peer peers.Peer) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("transfer: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("transfer: %s is a directory", path)
	}

	job := Job{
		TaskID: uuid.NewString(),
		Path:   path,
		Peer:   peer,
		Queued: time.Now(),
	}

	select {
	case <-q.done:
		return "", ErrClosed
	case q.jobs <- job:
		q.log.Debug("send queued", "task_id", job.TaskID, "path", path, "peer", peer.Name)
		return job.TaskID, nil
	default:
		return "", ErrQueueFull
	}
}

func (q *Queue) run() {
	for {
		select {
		case <-q.done:
			return
		case job := <-q.jobs:
			err := q.sender.SendFile(job.Peer.IP, job.Peer.Port, job.Path, job.TaskID, q.deviceName)
			if err != nil {
				q.log.Error("send failed", "task_id", job.TaskID, "path", job.Path, "err", err)
				continue
			}
			q.log.Info("send started", "task_id", job.TaskID, "path", job.Path, "peer", job.Peer.Name)
		}
	}
}

// Close stops the worker. Queued jobs that have not started are
// dropped.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
	q.wg.Wait()
}
