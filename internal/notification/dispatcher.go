package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	deliveryQueueSize = 256
	deliveryWorkers   = 2
	deliveryTimeout   = 30 * time.Second
)

// UserDirectory resolves the email address of a recipient.
type UserDirectory interface {
	EmailOf(ctx context.Context, userID string) (string, error)
}

type delivery struct {
	n   *Notification
	log logrus.FieldLogger
}

// Dispatcher fans an Event out to the in-app store, live connections and email.
// The in-app row is written synchronously; push and email run on background
// workers so a slow SMTP server never holds up the caller.
type Dispatcher struct {
	repo   Repository
	hub    *Hub
	mailer Mailer // nil disables email
	users  UserDirectory
	loc    *time.Location
	log    logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	queue  chan delivery
	wg     sync.WaitGroup
}

// NewDispatcher starts the delivery workers. Call Close to drain them.
func NewDispatcher(repo Repository, hub *Hub, mailer Mailer, users UserDirectory, loc *time.Location, log logrus.FieldLogger) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	d := &Dispatcher{
		repo:   repo,
		hub:    hub,
		mailer: mailer,
		users:  users,
		loc:    loc,
		log:    log,
		queue:  make(chan delivery, deliveryQueueSize),
	}
	d.wg.Add(deliveryWorkers)
	for range deliveryWorkers {
		go d.work()
	}
	return d
}

// Notify stores ev as an in-app notification and queues live and email delivery.
// Cancellation of ctx does not abort the store; only its error is returned.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) error {
	ctx = context.WithoutCancel(ctx)
	n := &Notification{
		UserID:    ev.RecipientID,
		Kind:      ev.Kind,
		BookingID: ev.BookingID,
		Title:     ev.Title(),
		Body:      ev.Body(d.loc),
		CreatedAt: time.Now(),
	}
	log := d.log.WithFields(logrus.Fields{
		"booking_id":   ev.BookingID,
		"recipient_id": ev.RecipientID,
		"kind":         ev.Kind,
	})

	var storeErr error
	if err := d.repo.Create(ctx, n); err != nil {
		storeErr = fmt.Errorf("store notification: %w", err)
		log.WithError(storeErr).Warn("in-app notification not stored")
	}

	d.enqueue(delivery{n: n, log: log})
	return storeErr
}

func (d *Dispatcher) enqueue(job delivery) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		job.log.Warn("dispatcher closed, live and email delivery skipped")
		return
	}
	select {
	case d.queue <- job:
	default:
		// The row is stored; the recipient still sees it on the next list.
		job.log.Warn("delivery queue full, live and email delivery skipped")
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.queue {
		d.deliver(job)
	}
}

func (d *Dispatcher) deliver(job delivery) {
	if d.hub != nil {
		if delivered := d.hub.Push(job.n); delivered > 0 {
			job.log.WithField("connections", delivered).Debug("notification pushed")
		}
	}
	if d.mailer == nil || d.users == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := d.email(ctx, job.n); err != nil {
		job.log.WithError(err).Warn("email notification failed")
	}
}

func (d *Dispatcher) email(ctx context.Context, n *Notification) error {
	to, err := d.users.EmailOf(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("lookup recipient email: %w", err)
	}
	if to == "" {
		return nil
	}
	return d.mailer.Send(to, n.Title, n.Body)
}

// Close stops accepting deliveries and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
