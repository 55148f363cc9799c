package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rosterwatch/internal/models"
)

// custodyColumns is the select list shared by every custody query.
const custodyColumns = `record_id, facility_id, name, normalized_name,
	COALESCE(date_of_birth, ''), COALESCE(sex, ''), COALESCE(race, ''),
	COALESCE(arrest_date, ''), COALESCE(release_date, ''),
	COALESCE(cell_block, ''), COALESCE(holding_agency, ''),
	COALESCE(charges, ''), COALESCE(mugshot, ''),
	last_seen, is_juvenile, hidden, created_at, updated_at`

// CustodyRepository owns the custody_records table. Reconciliation work goes
// through a Session (a dedicated connection per facility); read-only queries
// for the API and the export tool use the pool directly.
type CustodyRepository struct {
	db             *sql.DB
	logger         *zap.Logger
	batchSize      int
	touchThreshold time.Duration
}

// NewCustodyRepository creates the repository.
// batchSize bounds operations per transaction; touchThreshold suppresses
// last_seen refreshes for rows seen recently enough.
func NewCustodyRepository(db *sql.DB, logger *zap.Logger, batchSize int, touchThreshold time.Duration) *CustodyRepository {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &CustodyRepository{
		db:             db,
		logger:         logger,
		batchSize:      batchSize,
		touchThreshold: touchThreshold,
	}
}

// Session checks out a dedicated connection for one facility's
// reconciliation. Transactions opened on it can never interleave with
// another facility's work; callers must Close it before the next facility's
// session is opened on the same worker.
func (r *CustodyRepository) Session(ctx context.Context) (*CustodySession, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &CustodySession{
		conn:           conn,
		logger:         r.logger,
		batchSize:      r.batchSize,
		touchThreshold: r.touchThreshold,
	}, nil
}

// CustodySession is one facility's scoped persistence handle.
type CustodySession struct {
	conn           *sql.Conn
	logger         *zap.Logger
	batchSize      int
	touchThreshold time.Duration
}

// Close returns the connection to the pool.
func (s *CustodySession) Close() error {
	return s.conn.Close()
}

// FindOpenRecords loads every open custody record for one facility.
func (s *CustodySession) FindOpenRecords(ctx context.Context, facilityID string) ([]*models.CustodyRecord, error) {
	query := `SELECT ` + custodyColumns + `
		FROM custody_records
		WHERE facility_id = $1 AND release_date IS NULL`

	rows, err := s.conn.QueryContext(ctx, query, facilityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open records: %w", err)
	}
	defer rows.Close()

	var records []*models.CustodyRecord
	for rows.Next() {
		rec, err := scanCustodyRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ApplyResult reports what one ApplyBatch call actually persisted.
type ApplyResult struct {
	// Created holds the new records with their generated ids, for the
	// arrest events.
	Created []*models.CustodyRecord
	// ClosedIDs holds the record ids whose release_date was set by this
	// call (an already-closed row does not reappear here).
	ClosedIDs []string
	Applied   int
	Failed    int
}

// ApplyBatch applies one facility's operation list in fixed-size batches,
// one transaction per batch. A failed batch is rolled back and retried
// row-by-row so a single malformed operation cannot sink the whole
// facility; prior batches stay committed either way.
func (s *CustodySession) ApplyBatch(ctx context.Context, facilityID string, ops []models.Operation, runTime time.Time) (*ApplyResult, error) {
	result := &ApplyResult{}

	for start := 0; start < len(ops); start += s.batchSize {
		end := start + s.batchSize
		if end > len(ops) {
			end = len(ops)
		}
		batch := ops[start:end]

		if err := s.applyChunk(ctx, batch, runTime, result); err != nil {
			s.logger.Warn("Batch failed, retrying operations individually",
				zap.String("facility_id", facilityID),
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			s.applyRowByRow(ctx, facilityID, batch, runTime, result)
		}
	}

	return result, nil
}

// applyChunk runs one batch inside a single transaction.
func (s *CustodySession) applyChunk(ctx context.Context, batch []models.Operation, runTime time.Time, result *ApplyResult) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	staged := &ApplyResult{}
	for i := range batch {
		if err := s.applyOp(ctx, tx, &batch[i], runTime, staged); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	result.Created = append(result.Created, staged.Created...)
	result.ClosedIDs = append(result.ClosedIDs, staged.ClosedIDs...)
	result.Applied += staged.Applied
	return nil
}

// applyRowByRow is the fallback path after a batch failure: each operation
// gets its own transaction, failures are counted and logged, the rest of
// the batch proceeds.
func (s *CustodySession) applyRowByRow(ctx context.Context, facilityID string, batch []models.Operation, runTime time.Time, result *ApplyResult) {
	for i := range batch {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			result.Failed += len(batch) - i
			s.logger.Error("Failed to begin fallback transaction",
				zap.String("facility_id", facilityID),
				zap.Error(err),
			)
			return
		}

		staged := &ApplyResult{}
		if err := s.applyOp(ctx, tx, &batch[i], runTime, staged); err != nil {
			tx.Rollback()
			result.Failed++
			s.logger.Error("Operation failed",
				zap.String("facility_id", facilityID),
				zap.String("op", string(batch[i].Kind)),
				zap.String("record_id", batch[i].RecordID),
				zap.Error(err),
			)
			continue
		}
		if err := tx.Commit(); err != nil {
			result.Failed++
			s.logger.Error("Failed to commit fallback transaction",
				zap.String("facility_id", facilityID),
				zap.Error(err),
			)
			continue
		}

		result.Created = append(result.Created, staged.Created...)
		result.ClosedIDs = append(result.ClosedIDs, staged.ClosedIDs...)
		result.Applied += staged.Applied
	}
}

// applyOp applies a single operation inside the given transaction.
func (s *CustodySession) applyOp(ctx context.Context, tx *sql.Tx, op *models.Operation, runTime time.Time, staged *ApplyResult) error {
	switch op.Kind {
	case models.OpCreate:
		rec := newCustodyRecord(op, runTime)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO custody_records (
				record_id, facility_id, name, normalized_name,
				date_of_birth, sex, race, arrest_date,
				cell_block, holding_agency, charges, mugshot,
				last_seen, is_juvenile, hidden, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			rec.RecordID, rec.FacilityID, rec.Name, rec.NormalizedName,
			nullable(rec.DateOfBirth), nullable(rec.Sex), nullable(rec.Race), nullable(rec.ArrestDate),
			nullable(rec.CellBlock), nullable(rec.HoldingAgency), nullable(rec.Charges), nullable(rec.Mugshot),
			rec.LastSeen, rec.IsJuvenile, rec.Hidden, rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert custody record: %w", err)
		}
		staged.Created = append(staged.Created, rec)
		staged.Applied++
		return nil

	case models.OpTouch:
		if op.Dirty {
			// Roster data drifted; rewrite the row. An empty mugshot in
			// the roster keeps the stored image.
			_, err := tx.ExecContext(ctx, `
				UPDATE custody_records SET
					name = $1, normalized_name = $2, date_of_birth = $3,
					sex = $4, race = $5, cell_block = $6,
					holding_agency = $7, charges = $8,
					mugshot = CASE WHEN $9 = '' THEN mugshot ELSE $9 END,
					is_juvenile = $10, last_seen = $11, updated_at = $11
				WHERE record_id = $12`,
				op.Record.Name, op.Record.NormalizedName, nullable(op.Record.DateOfBirth),
				nullable(op.Record.Sex), nullable(op.Record.Race), nullable(op.Record.CellBlock),
				nullable(op.Record.HoldingAgency), nullable(op.Record.Charges),
				op.Record.Mugshot, op.Record.IsJuvenile, runTime, op.RecordID,
			)
			if err != nil {
				return fmt.Errorf("failed to update custody record: %w", err)
			}
			staged.Applied++
			return nil
		}

		// Plain touch: skip the write entirely when the stored timestamp
		// is recent. WAL volume grows with every row touched, whether or
		// not the value materially changed.
		_, err := tx.ExecContext(ctx, `
			UPDATE custody_records
			SET last_seen = $1, updated_at = $1
			WHERE record_id = $2 AND last_seen < $3`,
			runTime, op.RecordID, runTime.Add(-s.touchThreshold),
		)
		if err != nil {
			return fmt.Errorf("failed to touch custody record: %w", err)
		}
		staged.Applied++
		return nil

	case models.OpClose:
		res, err := tx.ExecContext(ctx, `
			UPDATE custody_records
			SET release_date = $1, updated_at = $2
			WHERE record_id = $3 AND release_date IS NULL`,
			op.ReleaseDate, runTime, op.RecordID,
		)
		if err != nil {
			return fmt.Errorf("failed to close custody record: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			staged.ClosedIDs = append(staged.ClosedIDs, op.RecordID)
		}
		staged.Applied++
		return nil

	default:
		return fmt.Errorf("unknown operation kind: %s", op.Kind)
	}
}

// ListPublicRoster returns a facility's open records for public views,
// excluding hidden and juvenile records.
func (r *CustodyRepository) ListPublicRoster(ctx context.Context, facilityID string) ([]*models.CustodyRecord, error) {
	query := `SELECT ` + custodyColumns + `
		FROM custody_records
		WHERE facility_id = $1 AND release_date IS NULL
		  AND hidden = FALSE AND is_juvenile = FALSE
		ORDER BY normalized_name`

	rows, err := r.db.QueryContext(ctx, query, facilityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query public roster: %w", err)
	}
	defer rows.Close()

	var records []*models.CustodyRecord
	for rows.Next() {
		rec, err := scanCustodyRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRecord loads one custody record by id.
func (r *CustodyRepository) GetRecord(ctx context.Context, recordID string) (*models.CustodyRecord, error) {
	query := `SELECT ` + custodyColumns + ` FROM custody_records WHERE record_id = $1`
	rows, err := r.db.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query custody record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return scanCustodyRecord(rows)
}

func newCustodyRecord(op *models.Operation, runTime time.Time) *models.CustodyRecord {
	e := op.Record
	return &models.CustodyRecord{
		RecordID:       uuid.New().String(),
		FacilityID:     op.FacilityID,
		Name:           e.Name,
		NormalizedName: e.NormalizedName,
		DateOfBirth:    e.DateOfBirth,
		Sex:            e.Sex,
		Race:           e.Race,
		ArrestDate:     e.ArrestDate,
		CellBlock:      e.CellBlock,
		HoldingAgency:  e.HoldingAgency,
		Charges:        e.Charges,
		Mugshot:        e.Mugshot,
		LastSeen:       runTime,
		IsJuvenile:     e.IsJuvenile,
		CreatedAt:      runTime,
		UpdatedAt:      runTime,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustodyRecord(row rowScanner) (*models.CustodyRecord, error) {
	rec := &models.CustodyRecord{}
	err := row.Scan(
		&rec.RecordID, &rec.FacilityID, &rec.Name, &rec.NormalizedName,
		&rec.DateOfBirth, &rec.Sex, &rec.Race,
		&rec.ArrestDate, &rec.ReleaseDate,
		&rec.CellBlock, &rec.HoldingAgency,
		&rec.Charges, &rec.Mugshot,
		&rec.LastSeen, &rec.IsJuvenile, &rec.Hidden, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan custody record: %w", err)
	}
	return rec, nil
}

// nullable maps "" to SQL NULL so absent dates and fields stay NULL in the
// store.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
