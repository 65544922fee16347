package repository

import (
	"context"

	"github.com/jmehdipour/fax-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// TransmissionsRepository defines persistence for the transmissions table.
type TransmissionsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, t model.Transmission) error
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, status model.TransmissionStatus) error
	// SetFaxID records the carrier-assigned fax id once an outbound fax
	// is accepted, together with the new status.
	SetFaxID(ctx context.Context, tx *sqlx.Tx, id, faxID string, status model.TransmissionStatus) error
	List(ctx context.Context, status model.TransmissionStatus, limit, offset int) ([]model.Transmission, error)
}

type TransmissionsRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransmissionsRepository(db *sqlx.DB) *TransmissionsRepositoryImpl {
	return &TransmissionsRepositoryImpl{db: db}
}

func (r *TransmissionsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *TransmissionsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, t model.Transmission) error {
	const q = `
		INSERT INTO transmissions
		    (id, direction, fax_id, from_phone, to_phone, email, file_name, status, created_at, updated_at)
		VALUES
		    (?,  ?,         ?,      ?,          ?,        ?,     ?,         ?,      NOW(),      NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			t.ID, t.Direction.String(), t.FaxID, t.FromPhone, t.ToPhone, t.Email, t.FileName, t.Status.String(),
		)
		return err
	})
}

func (r *TransmissionsRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, status model.TransmissionStatus) error {
	const q = `UPDATE transmissions SET status = ?, updated_at = NOW() WHERE id = ?`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, status.String(), id)
		return err
	})
}

func (r *TransmissionsRepositoryImpl) SetFaxID(ctx context.Context, tx *sqlx.Tx, id, faxID string, status model.TransmissionStatus) error {
	const q = `UPDATE transmissions SET fax_id = ?, status = ?, updated_at = NOW() WHERE id = ?`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, faxID, status.String(), id)
		return err
	})
}

func (r *TransmissionsRepositoryImpl) List(ctx context.Context, status model.TransmissionStatus, limit, offset int) ([]model.Transmission, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []model.Transmission
	if status != "" {
		const q = `
			SELECT id, direction, fax_id, from_phone, to_phone, email, file_name, status, created_at, updated_at
			FROM transmissions
			WHERE status = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &rows, q, status.String(), limit, offset); err != nil {
			return nil, err
		}
		return rows, nil
	}

	const q = `
		SELECT id, direction, fax_id, from_phone, to_phone, email, file_name, status, created_at, updated_at
		FROM transmissions
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	if err := r.db.SelectContext(ctx, &rows, q, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}
