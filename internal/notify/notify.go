// Package notify delivers transient user-visible notifications (toasts).
package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantInfo    Variant = "info"
	VariantWarning Variant = "warning"
	VariantDanger  Variant = "danger"
)

type Notification struct {
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Variant Variant `json:"variant"`
}

type Notifier interface {
	Notify(n Notification)
}

type Func func(n Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// LogNotifier writes notifications to a structured logger, used by headless clients.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(n Notification) {
	ev := l.log.Info()
	if n.Variant == VariantDanger {
		ev = l.log.Warn()
	}
	ev.Str("title", n.Title).Str("variant", string(n.Variant)).Msg(n.Message)
}

// Recorder keeps every notification in order.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.all))
	copy(out, r.all)
	return out
}

func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}, false
	}
	return r.all[len(r.all)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}
