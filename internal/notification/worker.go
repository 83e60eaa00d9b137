package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"hostel-allotment-backend/internal/model"
	"hostel-allotment-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// queueFactor sizes the job buffer per worker so a whole run can be queued
// without blocking the caller.
const queueFactor = 256

// WorkerPool sends allotment notices to students' browsers.
type WorkerPool struct {
	size    int
	jobs    chan string
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, st store.Store, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size*queueFactor),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.logger.With(zap.Int("worker", id))
	log.Debug("Notification worker started")
	for {
		select {
		case studentID := <-wp.jobs:
			wp.notifyStudent(ctx, studentID)
		case <-ctx.Done():
			log.Debug("Notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a notice for a newly allotted student. It never blocks;
// when the queue is full the notice is dropped.
func (wp *WorkerPool) Dispatch(studentID string) {
	select {
	case wp.jobs <- studentID:
	default:
		wp.logger.Warn("Notification queue full, dropping notice", zap.String("student_id", studentID))
	}
}

func (wp *WorkerPool) notifyStudent(ctx context.Context, studentID string) {
	subscriptions, err := wp.store.SubscriptionsForStudent(ctx, studentID)
	if err != nil {
		wp.logger.Error("Failed to fetch subscriptions", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	rec, err := wp.store.ActiveAllotmentFor(ctx, studentID)
	if errors.Is(err, store.ErrNoActiveAllotment) {
		// Withdrawn before the notice went out.
		return
	}
	if err != nil {
		wp.logger.Error("Failed to load allotment", zap.String("student_id", studentID), zap.Error(err))
		return
	}

	message := Message(rec)
	wp.logger.Info("Sending allotment notices",
		zap.String("student_id", studentID),
		zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// Message is the notice text for an allotment.
func Message(rec *model.AllotmentRecord) string {
	room := rec.RoomNumber
	if rec.Hostel.Code != "" {
		room = rec.Hostel.Code + " " + room
	}
	return fmt.Sprintf("Room %s, bed %s allotted", room, rec.BedID)
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("Failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("Deleting expired subscription", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("Failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
