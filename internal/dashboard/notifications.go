package dashboard

import (
	"fmt"
	"sync"
	"time"

	"facilitymonitor/internal/status"
)

// Notification is an entry of the alert list.
type Notification struct {
	ID      int64     `json:"id"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier emits a notification each time a metric enters the critical level.
// A metric that stays critical is reported once.
type Notifier struct {
	mu       sync.Mutex
	previous map[string]status.Level
	sink     func(Notification) error
}

func NewNotifier(sink func(Notification) error) *Notifier {
	return &Notifier{previous: make(map[string]status.Level), sink: sink}
}

// Observe compares statuses with the previous call and reports new criticals.
// Offline categories are skipped so stale values do not raise alerts.
func (n *Notifier) Observe(statuses []CategoryStatus, now time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	emitted := 0
	for _, cs := range statuses {
		if !cs.Online {
			continue
		}
		for _, m := range cs.Metrics {
			prev := n.previous[m.Label]
			n.previous[m.Label] = m.Level
			if m.Level != status.Critical || prev == status.Critical {
				continue
			}
			note := Notification{
				ID:      now.UnixNano() + int64(emitted),
				Message: fmt.Sprintf("%s is critical (%.2f%s)", m.Label, m.Value, m.Unit),
				Time:    now,
			}
			if err := n.sink(note); err != nil {
				return err
			}
			emitted++
		}
	}
	return nil
}
