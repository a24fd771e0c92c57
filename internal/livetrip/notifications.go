package livetrip

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"blueway/internal/domain"
	"blueway/internal/store"
)

// AddDriverNotification puts n at the head of the driver's queue. The id,
// timestamp and read flag are assigned here. The queue keeps the newest
// entries up to the configured limit.
func (r *Registry) AddDriverNotification(ctx context.Context, driverID string, n domain.DriverNotification) (domain.DriverNotification, error) {
	if driverID == "" {
		return domain.DriverNotification{}, fmt.Errorf("livetrip.Registry.AddDriverNotification: %w: driver id is required", domain.ErrValidation)
	}
	r.mu.Lock()
	out, err := r.addNotificationLocked(ctx, driverID, n)
	r.mu.Unlock()
	r.events.flush()
	return out, err
}

func (r *Registry) addNotificationLocked(ctx context.Context, driverID string, n domain.DriverNotification) (domain.DriverNotification, error) {
	n.ID = uuid.NewString()
	n.Timestamp = r.now()
	n.Read = false
	if _, err := store.PrependCapped(ctx, r.docs, store.NotificationsKey(driverID), n, r.notificationLimit); err != nil {
		r.log.ErrorContext(ctx, "failed to store driver notification", "driver_id", driverID, "type", n.Type, "error", err)
		return domain.DriverNotification{}, fmt.Errorf("livetrip.Registry.AddDriverNotification: %w", err)
	}
	note := n
	r.events.enqueue(Event{Type: EventDriverNotification, At: n.Timestamp, Notification: &note, DriverID: driverID})
	if r.metrics != nil {
		r.metrics.NotificationInc()
	}
	return n, nil
}

// DriverNotifications returns the driver's queue, newest first.
func (r *Registry) DriverNotifications(ctx context.Context, driverID string) ([]domain.DriverNotification, error) {
	list, err := store.LoadList[domain.DriverNotification](ctx, r.docs, store.NotificationsKey(driverID))
	if err != nil {
		return nil, fmt.Errorf("livetrip.Registry.DriverNotifications: %w", err)
	}
	return list, nil
}

func (r *Registry) MarkNotificationAsRead(ctx context.Context, driverID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := store.NotificationsKey(driverID)
	list, err := store.LoadList[domain.DriverNotification](ctx, r.docs, key)
	if err != nil {
		return fmt.Errorf("livetrip.Registry.MarkNotificationAsRead: %w", err)
	}
	for i := range list {
		if list[i].ID != notificationID {
			continue
		}
		if list[i].Read {
			return nil
		}
		list[i].Read = true
		if err := store.SaveValue(ctx, r.docs, key, list); err != nil {
			return fmt.Errorf("livetrip.Registry.MarkNotificationAsRead: %w", err)
		}
		return nil
	}
	r.log.WarnContext(ctx, "registry operation rejected", "op", "MarkNotificationAsRead", "reason", domain.ErrNotificationNotFound)
	return fmt.Errorf("livetrip.Registry.MarkNotificationAsRead: %w", domain.ErrNotificationNotFound)
}

func (r *Registry) UnreadCount(ctx context.Context, driverID string) (int, error) {
	list, err := r.DriverNotifications(ctx, driverID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, note := range list {
		if !note.Read {
			n++
		}
	}
	return n, nil
}
