package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"equipment-tracker-backend/internal/metrics"
	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/store"
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

// Payload is the JSON body delivered to subscribed browsers.
type Payload struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	RoomID      int64  `json:"room_id"`
	EquipmentID int64  `json:"equipment_id"`
	RecordID    int64  `json:"record_id"`
}

// WorkerPool delivers a push notification to every subscriber of a room when a
// management record is written for it.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*16),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		log:     log.With(zap.String("component", "notification")),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case recordID := <-wp.jobs:
			wp.notifyRecord(ctx, recordID)
		case <-ctx.Done():
			wp.log.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a committed management record for delivery. When the queue is
// full the notification is dropped; uploads never wait on push delivery.
func (wp *WorkerPool) Dispatch(recordID int64) {
	select {
	case wp.jobs <- recordID:
	default:
		metrics.PushNotifications.WithLabelValues("dropped").Inc()
		wp.log.Warn("notification queue full, dropping", zap.Int64("record_id", recordID))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

func (wp *WorkerPool) notifyRecord(ctx context.Context, recordID int64) {
	rec, err := wp.store.GetManagementRecord(ctx, recordID)
	if err != nil {
		wp.log.Error("failed to load management record", zap.Int64("record_id", recordID), zap.Error(err))
		return
	}

	subscriptions, err := wp.store.SubscriptionsForRoom(ctx, rec.RoomID)
	if err != nil {
		wp.log.Error("failed to load subscriptions", zap.Int64("room_id", rec.RoomID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(buildPayload(rec))
	if err != nil {
		wp.log.Error("failed to encode notification", zap.Error(err))
		return
	}

	wp.log.Info("sending notifications",
		zap.Int("count", len(subscriptions)),
		zap.Int64("room_id", rec.RoomID),
		zap.Int64("record_id", rec.ID),
	)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func buildPayload(rec *model.ManagementRecord) Payload {
	roomLabel := fmt.Sprintf("room %d", rec.RoomID)
	if rec.Room != nil && rec.Room.RoomName != "" {
		roomLabel = rec.Room.RoomName
	}
	equipmentLabel := fmt.Sprintf("#%d", rec.EquipmentID)
	if rec.Equipment != nil && rec.Equipment.OEMSerial != "" {
		equipmentLabel = rec.Equipment.OEMSerial
	}

	return Payload{
		Title:       fmt.Sprintf("%s updated", roomLabel),
		Body:        fmt.Sprintf("New management record for equipment %s", equipmentLabel),
		RoomID:      rec.RoomID,
		EquipmentID: rec.EquipmentID,
		RecordID:    rec.ID,
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		metrics.PushNotifications.WithLabelValues("error").Inc()
		wp.log.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		metrics.PushNotifications.WithLabelValues("expired").Inc()
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
		return
	}
	metrics.PushNotifications.WithLabelValues("sent").Inc()
}
