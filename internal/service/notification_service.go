package service

import (
	"context"
	"time"

	"github.com/d60-Lab/columnfeed/internal/feed"
	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/store"
	"github.com/d60-Lab/columnfeed/pkg/aid"
)

// NotificationService writes and serves wide-column notifications.
// Read/unread state is not tracked on this path.
type NotificationService struct {
	store  store.Store
	engine *feed.Engine
}

func NewNotificationService(st store.Store, engine *feed.Engine) *NotificationService {
	return &NotificationService{store: st, engine: engine}
}

// Notify records a notification for its target. Self-notifications are
// silently dropped.
func (s *NotificationService) Notify(ctx context.Context, n model.Notification) error {
	if n.NotifierID != "" && n.NotifierID == n.TargetID {
		return nil
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.ID == "" {
		n.ID = aid.New(n.CreatedAt)
	}
	return s.store.Insert(ctx, store.InsertNotification, store.NotificationRow(n))
}

// List pages a user's notifications newest first, hiding those from
// notifiers the user mutes.
func (s *NotificationService) List(ctx context.Context, p feed.Params, muted map[string]struct{}) ([]model.Notification, error) {
	var filter func([]model.Notification) []model.Notification
	if len(muted) > 0 {
		filter = func(items []model.Notification) []model.Notification {
			out := make([]model.Notification, 0, len(items))
			for _, n := range items {
				if _, ok := muted[n.NotifierID]; ok {
					continue
				}
				out = append(out, n)
			}
			return out
		}
	}
	return s.engine.Notifications(ctx, p, filter)
}
