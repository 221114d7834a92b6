package notify

import "context"

// Notifier pushes one human-readable message. Title carries the headline
// (e.g. "🔥在庫復活"), text the detail lines; text may be empty.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a message out to every configured sink. Nil entries are
// skipped so callers can append optional notifiers unconditionally.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, title, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
