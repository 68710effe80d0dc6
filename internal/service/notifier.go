package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Mailer is the outbound delivery capability injected into the Notifier.
// Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notification is one queued post-commit message.
type Notification struct {
	Recipient string
	Subject   string
	Body      string
}

const sendTimeout = 10 * time.Second

// Notifier delivers notifications queued after a committed transaction.
// Delivery is best-effort and fully decoupled from the transaction
// outcome: enqueueing never blocks the caller, and a failed send is
// logged, never propagated.
type Notifier struct {
	mailer Mailer
	log    *logrus.Logger

	queue chan Notification

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// NewNotifier creates a Notifier with a bounded queue and starts its
// delivery worker. Call Stop() during graceful shutdown.
func NewNotifier(mailer Mailer, log *logrus.Logger, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	n := &Notifier{
		mailer:   mailer,
		log:      log,
		queue:    make(chan Notification, queueSize),
		stopChan: make(chan struct{}),
	}

	n.wg.Add(1)
	go n.deliverLoop()

	return n
}

// Enqueue queues a notification without blocking. When the queue is full
// or the notifier is stopping the notification is dropped and logged —
// the committed booking outcome is authoritative either way.
func (n *Notifier) Enqueue(note Notification) {
	if n.stopped.Load() {
		n.log.Warnf("Notifier stopped, dropping notification to %s: %s", note.Recipient, note.Subject)
		return
	}

	select {
	case n.queue <- note:
	default:
		n.log.Warnf("Notification queue full, dropping notification to %s: %s", note.Recipient, note.Subject)
	}
}

// Stop shuts the worker down after draining whatever is already queued.
// Safe to call multiple times.
func (n *Notifier) Stop() {
	if n.stopped.CompareAndSwap(false, true) {
		close(n.stopChan)
		n.wg.Wait()
	}
}

func (n *Notifier) deliverLoop() {
	defer n.wg.Done()

	for {
		select {
		case note := <-n.queue:
			n.deliver(note)
		case <-n.stopChan:
			// Drain remaining notifications before exiting
			for {
				select {
				case note := <-n.queue:
					n.deliver(note)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) deliver(note Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := n.mailer.Send(ctx, note.Recipient, note.Subject, note.Body); err != nil {
		n.log.Warnf("Failed to send notification to %s (%s): %+v", note.Recipient, note.Subject, err)
		return
	}

	n.log.Infof("Notification sent to %s: %s", note.Recipient, note.Subject)
}
