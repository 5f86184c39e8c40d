package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"dockhand/internal/docker"
)

// Entry is one recorded event.
type Entry struct {
	ID         int64
	RecordedAt time.Time
	Event      docker.Event
}

// Record appends ev to the journal and returns its row id.
func (j *Journal) Record(ctx context.Context, ev docker.Event) (int64, error) {
	attrs, err := json.Marshal(ev.Actor.Attributes)
	if err != nil {
		return 0, fmt.Errorf("encode actor attributes: %w", err)
	}
	if ev.Actor.Attributes == nil {
		attrs = []byte("{}")
	}

	var id int64
	err = retryOnBusy(ctx, func() error {
		res, execErr := j.db.ExecContext(ctx,
			`INSERT INTO events (occurred_at_ns, type, action, actor_id, actor_name, attributes, scope, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.Timestamp().UnixNano(),
			ev.Type,
			ev.Action,
			ev.Actor.ID,
			ev.Name(),
			string(attrs),
			ev.Scope,
			time.Now().UTC().Format(time.RFC3339Nano),
		)
		if execErr != nil {
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("record event: %w", err)
	}
	return id, nil
}

// Recent returns up to limit of the most recently recorded events, oldest
// first. A limit <= 0 returns every entry.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, occurred_at_ns, type, action, actor_id, attributes, scope, recorded_at
		FROM events ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			occurredNs int64
			attrs      string
			recordedAt string
		)
		if err := rows.Scan(&entry.ID, &occurredNs, &entry.Event.Type, &entry.Event.Action,
			&entry.Event.Actor.ID, &attrs, &entry.Event.Scope, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if attrs != "" && attrs != "{}" {
			if err := json.Unmarshal([]byte(attrs), &entry.Event.Actor.Attributes); err != nil {
				return nil, fmt.Errorf("decode attributes for event %d: %w", entry.ID, err)
			}
		}
		entry.Event.TimeNano = occurredNs
		entry.Event.Time = occurredNs / int64(time.Second)
		if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			entry.RecordedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	slices.Reverse(entries)
	return entries, nil
}
