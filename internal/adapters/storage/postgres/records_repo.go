package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"pet-health-records/internal/domain/records"
)

// RecordsRepo persiste health_records. El soft-delete es una columna
// deleted_at nullable: las lecturas normales filtran `deleted_at IS NULL`
// y la fila nunca se borra físicamente. media_ids se guarda como texto
// delimitado por comas.
type RecordsRepo struct {
	db *sql.DB
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

const recordColumns = `
	id, pet_id,
	type, date, title,
	description, doctor, clinic,
	media_ids,
	has_next_visit, next_visit_date,
	version,
	created_at, updated_at, deleted_at
`

func (r *RecordsRepo) Create(ctx context.Context, rec records.HealthRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO health_records (
			id, pet_id,
			type, date, title,
			description, doctor, clinic,
			media_ids,
			has_next_visit, next_visit_date,
			version,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		rec.ID,
		rec.PetID,
		string(rec.Type),
		rec.Date,
		rec.Title,
		rec.Description,
		rec.Doctor,
		rec.Clinic,
		joinMediaIDs(rec.MediaIDs),
		rec.HasNextVisit,
		rec.NextVisitDate,
		rec.Version,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.HealthRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return records.HealthRecord{}, records.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM health_records
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return records.HealthRecord{}, records.ErrNotFound
	}
	return rec, err
}

func (r *RecordsRepo) ListAll(ctx context.Context) ([]records.HealthRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM health_records
		WHERE deleted_at IS NULL
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *RecordsRepo) ListByPet(ctx context.Context, petID string) ([]records.HealthRecord, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM health_records
		WHERE pet_id = $1 AND deleted_at IS NULL
		ORDER BY date DESC
	`, petID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Update reemplaza la fila completa con compare-and-swap sobre version.
// pet_id no se toca: es inmutable a nivel de fila también.
func (r *RecordsRepo) Update(ctx context.Context, rec records.HealthRecord, expectedVersion int64) (records.HealthRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE health_records SET
			type = $3,
			date = $4,
			title = $5,
			description = $6,
			doctor = $7,
			clinic = $8,
			media_ids = $9,
			has_next_visit = $10,
			next_visit_date = $11,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING `+recordColumns+`
	`,
		rec.ID,
		expectedVersion,
		string(rec.Type),
		rec.Date,
		rec.Title,
		rec.Description,
		rec.Doctor,
		rec.Clinic,
		joinMediaIDs(rec.MediaIDs),
		rec.HasNextVisit,
		rec.NextVisitDate,
	)

	updated, err := scanRecord(row)
	if err == sql.ErrNoRows {
		// Distinguir "no existe" de "la versión cambió abajo nuestro".
		var exists bool
		if e := r.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM health_records WHERE id = $1 AND deleted_at IS NULL)
		`, rec.ID).Scan(&exists); e != nil {
			return records.HealthRecord{}, e
		}
		if exists {
			return records.HealthRecord{}, records.ErrConflict
		}
		return records.HealthRecord{}, records.ErrNotFound
	}
	return updated, err
}

func (r *RecordsRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE health_records
		SET deleted_at = $2, updated_at = $2, version = version + 1
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}

func (r *RecordsRepo) Restore(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE health_records
		SET deleted_at = NULL, updated_at = now(), version = version + 1
		WHERE id = $1 AND deleted_at IS NOT NULL
	`, id)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		// Fila activa: restore es no-op. Fila inexistente: not found.
		var exists bool
		if e := r.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM health_records WHERE id = $1)
		`, id).Scan(&exists); e != nil {
			return e
		}
		if !exists {
			return records.ErrNotFound
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (records.HealthRecord, error) {
	var rec records.HealthRecord
	var typ, mediaIDs string
	var nextVisit, deletedAt sql.NullTime

	if err := row.Scan(
		&rec.ID,
		&rec.PetID,
		&typ,
		&rec.Date,
		&rec.Title,
		&rec.Description,
		&rec.Doctor,
		&rec.Clinic,
		&mediaIDs,
		&rec.HasNextVisit,
		&nextVisit,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&deletedAt,
	); err != nil {
		return records.HealthRecord{}, err
	}

	rec.Type = records.RecordType(typ)
	rec.MediaIDs = splitMediaIDs(mediaIDs)
	if nextVisit.Valid {
		t := nextVisit.Time
		rec.NextVisitDate = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		rec.DeletedAt = &t
	}
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]records.HealthRecord, error) {
	out := make([]records.HealthRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func joinMediaIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func splitMediaIDs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
