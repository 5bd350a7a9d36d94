package client

import (
	"context"
	"sync"

	"github.com/Daskott/lifealert/server/models"
)

type AlertSource interface {
	Alerts(ctx context.Context) ([]models.Alert, error)
	WatchAlerts(ctx context.Context, onAlert func(models.Alert)) error
}

// Board is the dashboard's view of alerts, most recent first. It is loaded
// once and then kept current from the change feed without refetching.
type Board struct {
	mu     sync.Mutex
	alerts []models.Alert
	seen   map[string]struct{}

	// OnChange is called with the new list after every load or applied alert
	OnChange func([]models.Alert)
}

func NewBoard() *Board {
	return &Board{seen: make(map[string]struct{})}
}

func (b *Board) Load(ctx context.Context, source AlertSource) error {
	alerts, err := source.Alerts(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.alerts = alerts
	b.seen = make(map[string]struct{}, len(alerts))
	for _, alert := range alerts {
		b.seen[alert.ID] = struct{}{}
	}
	b.mu.Unlock()

	b.notify()
	return nil
}

// Apply prepends alert, ignoring alerts already on the board
func (b *Board) Apply(alert models.Alert) {
	b.mu.Lock()
	if _, ok := b.seen[alert.ID]; ok {
		b.mu.Unlock()
		return
	}
	b.seen[alert.ID] = struct{}{}
	b.alerts = append([]models.Alert{alert}, b.alerts...)
	b.mu.Unlock()

	b.notify()
}

// Watch applies feed alerts until ctx is done or the feed closes
func (b *Board) Watch(ctx context.Context, source AlertSource) error {
	return source.WatchAlerts(ctx, b.Apply)
}

func (b *Board) Alerts() []models.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()

	alerts := make([]models.Alert, len(b.alerts))
	copy(alerts, b.alerts)
	return alerts
}

func (b *Board) notify() {
	if b.OnChange != nil {
		b.OnChange(b.Alerts())
	}
}
