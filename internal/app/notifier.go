package app

import (
	"time"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a notification before it is scheduled.
type Notice struct {
	Level Level
	Text  string
}

func success(text string) Notice { return Notice{Level: LevelSuccess, Text: text} }
func failure(text string) Notice { return Notice{Level: LevelError, Text: text} }

// Notification is a visible toast with an expiry time.
type Notification struct {
	ID      int
	Level   Level
	Text    string
	Expires time.Time
}

// Notifier holds the transient toasts. It is only touched from the UI loop.
type Notifier struct {
	lifetime time.Duration
	nextID   int
	items    []Notification
}

const DefaultNotificationLifetime = 3 * time.Second

func NewNotifier(lifetime time.Duration) *Notifier {
	if lifetime <= 0 {
		lifetime = DefaultNotificationLifetime
	}
	return &Notifier{lifetime: lifetime}
}

func (n *Notifier) Lifetime() time.Duration { return n.lifetime }

// Push schedules a notice and returns the created toast.
func (n *Notifier) Push(now time.Time, notice Notice) Notification {
	n.nextID++
	item := Notification{ID: n.nextID, Level: notice.Level, Text: notice.Text, Expires: now.Add(n.lifetime)}
	n.items = append(n.items, item)
	return item
}

// Expire drops every toast whose time has passed and reports how many went away.
func (n *Notifier) Expire(now time.Time) int {
	kept := n.items[:0]
	for _, it := range n.items {
		if now.Before(it.Expires) {
			kept = append(kept, it)
		}
	}
	removed := len(n.items) - len(kept)
	n.items = kept
	return removed
}

// Active returns the toasts still on screen, oldest first.
func (n *Notifier) Active() []Notification {
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}
