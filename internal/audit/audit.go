// Package audit records administrative actions and logins in an append-only
// trail. Entries are never edited or deleted; recording is best-effort and
// must not fail the action it describes.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"progtrack.org/internal/ids"
)

// Entry is one audit record.
type Entry struct {
	ID         string            `json:"id"`
	OccurredAt time.Time         `json:"occurred_at"`
	ActorID    string            `json:"actor_id"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// Store appends immutable entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
}

// Recorder writes audit entries and mirrors them to the log.
type Recorder struct {
	store Store
	log   *zap.Logger
}

// NewRecorder constructs a Recorder. A nil store degrades to log-only.
func NewRecorder(store Store, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: store, log: log}
}

// Record appends an entry. Failures are logged, never propagated: the audit
// trail is an observer of actions, not a gate on them.
func (r *Recorder) Record(ctx context.Context, actorID, action, entityType, entityID string, details map[string]string) {
	entry := &Entry{
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
	r.log.Info("audit",
		zap.String("action", action),
		zap.String("actor_id", actorID),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.Any("details", details),
	)
	if r.store == nil {
		return
	}
	if err := r.store.Append(ctx, entry); err != nil {
		r.log.Warn("audit append failed", zap.String("action", action), zap.Error(err))
	}
}

// PGStore persists entries to PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into audit_log(id, occurred_at, actor_id, action, entity_type, entity_id, details)
		 values($1,$2,$3,$4,$5,nullif($6,''),$7)`,
		entry.ID, entry.OccurredAt, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, details,
	)
	return err
}
