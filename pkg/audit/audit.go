// Package audit records processed reference updates and their
// notification deliveries in the audit database.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/refgate/refgate/pkg/db"
)

// RefUpdate is one accepted reference update.
type RefUpdate struct {
	ID        string    `db:"id"`
	Repo      string    `db:"repo"`
	RefName   string    `db:"ref_name"`
	OldRev    string    `db:"old_rev"`
	NewRev    string    `db:"new_rev"`
	RefKind   string    `db:"ref_kind"`
	Pusher    string    `db:"pusher"`
	CreatedAt time.Time `db:"created_at"`
}

// Delivery is one notification attempt for a reference update.
type Delivery struct {
	ID          string    `db:"id"`
	RefUpdateID string    `db:"ref_update_id"`
	Kind        string    `db:"kind"`
	Destination string    `db:"destination"`
	Success     bool      `db:"success"`
	Detail      string    `db:"detail"`
	CreatedAt   time.Time `db:"created_at"`
}

// Delivery kinds.
const (
	DeliveryEmail   = "email"
	DeliveryWebhook = "webhook"
)

// Store persists the audit trail. It accepts any db.Handler so the
// same store works inside a transaction.
type Store struct {
	h db.Handler
}

// NewStore returns a store over the given database or transaction.
func NewStore(h db.Handler) *Store {
	return &Store{h: h}
}

// RecordRefUpdate inserts the reference update and returns its id.
func (s *Store) RecordRefUpdate(ctx context.Context, r *RefUpdate) (string, error) {
	r.ID = uuid.New().String()
	r.CreatedAt = time.Now().UTC()
	_, err := s.h.ExecContext(ctx, s.h.Rebind(`
		INSERT INTO ref_updates (id, repo, ref_name, old_rev, new_rev, ref_kind, pusher, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.Repo, r.RefName, r.OldRev, r.NewRev, r.RefKind, r.Pusher, r.CreatedAt,
	)
	return r.ID, db.WrapError(err)
}

// RecordDelivery inserts one notification attempt.
func (s *Store) RecordDelivery(ctx context.Context, d *Delivery) error {
	d.ID = uuid.New().String()
	d.CreatedAt = time.Now().UTC()
	_, err := s.h.ExecContext(ctx, s.h.Rebind(`
		INSERT INTO deliveries (id, ref_update_id, kind, destination, success, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		d.ID, d.RefUpdateID, d.Kind, d.Destination, d.Success, d.Detail, d.CreatedAt,
	)
	return db.WrapError(err)
}

// RefUpdates returns the recorded updates for a repository, newest
// first.
func (s *Store) RefUpdates(ctx context.Context, repo string, limit int) ([]RefUpdate, error) {
	var out []RefUpdate
	err := s.h.SelectContext(ctx, &out, s.h.Rebind(`
		SELECT * FROM ref_updates WHERE repo = ?
		ORDER BY created_at DESC LIMIT ?`),
		repo, limit,
	)
	return out, db.WrapError(err)
}

// Deliveries returns the notification attempts for a reference update.
func (s *Store) Deliveries(ctx context.Context, refUpdateID string) ([]Delivery, error) {
	var out []Delivery
	err := s.h.SelectContext(ctx, &out, s.h.Rebind(`
		SELECT * FROM deliveries WHERE ref_update_id = ?
		ORDER BY created_at`),
		refUpdateID,
	)
	return out, db.WrapError(err)
}
