package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/urgency/internal/domain"
)

// Repository provides Postgres-backed persistence for wellness records,
// activity records and the coach roster.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) beginTenantTx(ctx context.Context, tenantID string) (*pgxpool.Conn, pgx.Tx, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, nil, err
	}

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		tx.Rollback(ctx)
		conn.Release()
		return nil, nil, err
	}

	return conn, tx, nil
}

// ListWindow returns an athlete's wellness records with entry dates inside
// [from, to], oldest first.
func (r *Repository) ListWindow(ctx context.Context, tenantID, athleteID string, from, to time.Time) ([]domain.WellnessRecord, error) {
	const query = `SELECT wellness_id, tenant_id, athlete_id, entry_date, sleep_hours, vitality_level, pain_level, created_at, updated_at
        FROM wellness_log
        WHERE tenant_id=$1 AND athlete_id=$2 AND entry_date >= $3 AND entry_date <= $4
        ORDER BY entry_date`

	conn, tx, err := r.beginTenantTx(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, tenantID, athleteID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanWellnessRows(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

// Upsert writes the record for (tenant, athlete, date), replacing any
// existing check-in for the same day. The stored row is returned so callers
// see the surviving ID and creation timestamp on replay.
func (r *Repository) Upsert(ctx context.Context, record domain.WellnessRecord) (*domain.WellnessRecord, error) {
	const stmt = `INSERT INTO wellness_log (wellness_id, tenant_id, athlete_id, entry_date, sleep_hours, vitality_level, pain_level, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (tenant_id, athlete_id, entry_date) DO UPDATE SET
            sleep_hours = EXCLUDED.sleep_hours,
            vitality_level = EXCLUDED.vitality_level,
            pain_level = EXCLUDED.pain_level,
            updated_at = EXCLUDED.updated_at
        RETURNING wellness_id, tenant_id, athlete_id, entry_date, sleep_hours, vitality_level, pain_level, created_at, updated_at`

	conn, tx, err := r.beginTenantTx(ctx, record.TenantID)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, stmt,
		record.ID,
		record.TenantID,
		record.AthleteID,
		record.Date,
		record.SleepHours,
		record.VitalityLevel,
		record.PainLevel,
		record.CreatedAt,
		record.UpdatedAt,
	)

	var stored domain.WellnessRecord
	if err := row.Scan(&stored.ID, &stored.TenantID, &stored.AthleteID, &stored.Date, &stored.SleepHours, &stored.VitalityLevel, &stored.PainLevel, &stored.CreatedAt, &stored.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListByAthlete returns wellness records newest first with cursor pagination.
func (r *Repository) ListByAthlete(ctx context.Context, tenantID, athleteID string, cursor *domain.Cursor, limit int) ([]domain.WellnessRecord, *domain.Cursor, error) {
	args := []interface{}{tenantID, athleteID, limit}
	query := `SELECT wellness_id, tenant_id, athlete_id, entry_date, sleep_hours, vitality_level, pain_level, created_at, updated_at
        FROM wellness_log WHERE tenant_id=$1 AND athlete_id=$2`

	if cursor != nil {
		query += ` AND (entry_date, wellness_id) < ($4, $5)`
		args = append(args, cursor.Date, cursor.ID)
	}

	query += ` ORDER BY entry_date DESC, wellness_id DESC LIMIT $3`

	conn, tx, err := r.beginTenantTx(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Release()
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	records, err := scanWellnessRows(rows)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(records) == limit {
		last := records[len(records)-1]
		nextCursor = &domain.Cursor{Date: last.Date, ID: last.ID}
	}

	return records, nextCursor, nil
}

// ListCompletedSince returns an athlete's completed sessions started at or
// after the lower bound, newest first. One query feeds both recency windows
// so their counts always come from the same snapshot.
func (r *Repository) ListCompletedSince(ctx context.Context, tenantID, athleteID string, since time.Time) ([]domain.ActivityRecord, error) {
	const query = `SELECT activity_id, tenant_id, athlete_id, session_type, started_at, duration_min, completed, created_at
        FROM activity_log
        WHERE tenant_id=$1 AND athlete_id=$2 AND completed AND started_at >= $3
        ORDER BY started_at DESC`

	conn, tx, err := r.beginTenantTx(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, tenantID, athleteID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.ActivityRecord, 0)
	for rows.Next() {
		var rec domain.ActivityRecord
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.AthleteID, &rec.SessionType, &rec.StartedAt, &rec.DurationMin, &rec.Completed, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

// InsertActivity stores one ingested session record. Duplicate activity IDs
// are ignored so event redelivery stays idempotent.
func (r *Repository) InsertActivity(ctx context.Context, record domain.ActivityRecord) error {
	const stmt = `INSERT INTO activity_log (activity_id, tenant_id, athlete_id, session_type, started_at, duration_min, completed, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (activity_id) DO NOTHING`

	conn, tx, err := r.beginTenantTx(ctx, record.TenantID)
	if err != nil {
		return err
	}
	defer conn.Release()
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, stmt,
		record.ID,
		record.TenantID,
		record.AthleteID,
		record.SessionType,
		record.StartedAt,
		record.DurationMin,
		record.Completed,
		record.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListAthletes returns every athlete in the tenant, for admin requesters.
func (r *Repository) ListAthletes(ctx context.Context, tenantID string) ([]domain.Athlete, error) {
	const query = `SELECT athlete_id, display_name FROM athletes WHERE tenant_id=$1 ORDER BY athlete_id`
	return r.listAthletes(ctx, tenantID, query, tenantID)
}

// ListAssignedAthletes returns the athletes assigned to a coach.
func (r *Repository) ListAssignedAthletes(ctx context.Context, tenantID, coachID string) ([]domain.Athlete, error) {
	const query = `SELECT a.athlete_id, a.display_name
        FROM athletes a
        JOIN coach_assignments c ON c.tenant_id = a.tenant_id AND c.athlete_id = a.athlete_id
        WHERE a.tenant_id=$1 AND c.coach_id=$2
        ORDER BY a.athlete_id`
	return r.listAthletes(ctx, tenantID, query, tenantID, coachID)
}

func (r *Repository) listAthletes(ctx context.Context, tenantID, query string, args ...interface{}) ([]domain.Athlete, error) {
	conn, tx, err := r.beginTenantTx(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	athletes := make([]domain.Athlete, 0)
	for rows.Next() {
		var a domain.Athlete
		if err := rows.Scan(&a.ID, &a.DisplayName); err != nil {
			return nil, err
		}
		athletes = append(athletes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return athletes, nil
}

func scanWellnessRows(rows pgx.Rows) ([]domain.WellnessRecord, error) {
	records := make([]domain.WellnessRecord, 0)
	for rows.Next() {
		var rec domain.WellnessRecord
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.AthleteID, &rec.Date, &rec.SleepHours, &rec.VitalityLevel, &rec.PainLevel, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
