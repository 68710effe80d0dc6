package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu       sync.Mutex
	sent     []Notification
	sendErr  error
	received chan struct{}
}

func newRecordingMailer(buffer int) *recordingMailer {
	return &recordingMailer{received: make(chan struct{}, buffer)}
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received <- struct{}{}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, Notification{Recipient: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) delivered() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.sent))
	copy(out, m.sent)
	return out
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func waitReceived(t *testing.T, m *recordingMailer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-m.received:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d of %d", i+1, n)
		}
	}
}

func TestNotifier_DeliversEnqueued(t *testing.T) {
	mailer := newRecordingMailer(4)
	n := NewNotifier(mailer, quietLogger(), 4)
	defer n.Stop()

	n.Enqueue(Notification{Recipient: "a@example.com", Subject: "hello", Body: "body"})
	waitReceived(t, mailer, 1)

	sent := mailer.delivered()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@example.com", sent[0].Recipient)
	assert.Equal(t, "hello", sent[0].Subject)
}

func TestNotifier_SendFailureIsSwallowed(t *testing.T) {
	mailer := newRecordingMailer(4)
	mailer.sendErr = errors.New("smtp down")
	n := NewNotifier(mailer, quietLogger(), 4)
	defer n.Stop()

	// Enqueue never reports failure; the worker logs and moves on.
	n.Enqueue(Notification{Recipient: "a@example.com", Subject: "first"})
	waitReceived(t, mailer, 1)

	mailer.mu.Lock()
	mailer.sendErr = nil
	mailer.mu.Unlock()

	n.Enqueue(Notification{Recipient: "b@example.com", Subject: "second"})
	waitReceived(t, mailer, 1)

	sent := mailer.delivered()
	require.Len(t, sent, 1)
	assert.Equal(t, "b@example.com", sent[0].Recipient)
}

func TestNotifier_StopDrainsQueue(t *testing.T) {
	mailer := newRecordingMailer(8)
	n := NewNotifier(mailer, quietLogger(), 8)

	for i := 0; i < 5; i++ {
		n.Enqueue(Notification{Recipient: "drain@example.com", Subject: "queued"})
	}
	n.Stop()

	assert.Len(t, mailer.delivered(), 5, "Stop must drain already queued notifications")
}

func TestNotifier_EnqueueAfterStopDrops(t *testing.T) {
	mailer := newRecordingMailer(4)
	n := NewNotifier(mailer, quietLogger(), 4)
	n.Stop()

	n.Enqueue(Notification{Recipient: "late@example.com", Subject: "too late"})

	assert.Empty(t, mailer.delivered())
}

func TestNotifier_FullQueueDropsWithoutBlocking(t *testing.T) {
	block := make(chan struct{})
	mailer := &blockingMailer{release: block}
	n := NewNotifier(mailer, quietLogger(), 1)

	// First notification occupies the worker, second fills the queue,
	// the rest must be dropped immediately.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			n.Enqueue(Notification{Subject: "burst"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	close(block)
	n.Stop()
}

type blockingMailer struct {
	release chan struct{}
	blocked bool
	mu      sync.Mutex
}

func (m *blockingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	first := !m.blocked
	m.blocked = true
	m.mu.Unlock()
	if first {
		<-m.release
	}
	return nil
}
