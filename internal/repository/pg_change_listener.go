package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProspectChangesChannel is the NOTIFY channel written by the prospects trigger.
// The payload is the owning user id.
const ProspectChangesChannel = "prospect_changes"

const listenerRetryDelay = 2 * time.Second

// PgChangeListener takes one connection out of the pool, puts it in LISTEN
// mode and forwards every notification payload to notify. The connection is
// closed, never returned to the pool, when listening stops.
type PgChangeListener struct {
	pool    *pgxpool.Pool
	channel string
	notify  func(userID string)
}

// NewPgChangeListener creates a listener for ProspectChangesChannel.
func NewPgChangeListener(pool *pgxpool.Pool, notify func(userID string)) *PgChangeListener {
	return &PgChangeListener{pool: pool, channel: ProspectChangesChannel, notify: notify}
}

// Run blocks until ctx is cancelled. A dropped connection is re-acquired after
// a short delay; notifications sent while disconnected are lost, so every
// reconnect is followed by a wildcard notify("") that asks subscribers to reload.
func (l *PgChangeListener) Run(ctx context.Context) error {
	first := true
	for {
		err := l.listen(ctx, !first)
		if ctx.Err() != nil {
			return nil
		}
		first = false
		slog.Warn("change listener disconnected", "channel", l.channel, "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(listenerRetryDelay):
		}
	}
}

func (l *PgChangeListener) listen(ctx context.Context, resync bool) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	slog.Info("listening for prospect changes", "channel", l.channel)
	if resync {
		l.notify("")
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.notify(n.Payload)
	}
}
