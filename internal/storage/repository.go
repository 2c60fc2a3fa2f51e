package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"creditos/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const creditColumns = "id, cliente, monto, tasa_interes, plazo, fecha_otorgamiento"

func scanCredit(s interface{ Scan(...any) error }) (core.Credit, error) {
	var (
		c  core.Credit
		id int64
	)
	if err := s.Scan(&id, &c.Cliente, &c.Monto, &c.TasaInteres, &c.Plazo, &c.FechaOtorgamiento); err != nil {
		return core.Credit{}, err
	}
	c.ID = core.NewCreditID(id)
	return c, nil
}

func rowID(id core.CreditID) (int64, error) {
	n, ok := id.Int64()
	if !ok {
		return 0, ErrNotFound
	}
	return n, nil
}

// ListCredits returns every credit ordered by id.
func (r *SQLiteRepository) ListCredits(ctx context.Context) ([]core.Credit, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+creditColumns+" FROM creditos ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	defer rows.Close()

	credits := make([]core.Credit, 0)
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		credits = append(credits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credits: %w", err)
	}
	return credits, nil
}

func (r *SQLiteRepository) GetCredit(ctx context.Context, id core.CreditID) (core.Credit, error) {
	n, err := rowID(id)
	if err != nil {
		return core.Credit{}, err
	}
	row := r.db.QueryRowContext(ctx, "SELECT "+creditColumns+" FROM creditos WHERE id = ?", n)
	c, err := scanCredit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Credit{}, ErrNotFound
	}
	if err != nil {
		return core.Credit{}, fmt.Errorf("get credit %s: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCredit(ctx context.Context, f core.CreditFields) (core.Credit, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO creditos (cliente, monto, tasa_interes, plazo, fecha_otorgamiento) VALUES (?, ?, ?, ?, ?)`,
		f.Cliente, f.Monto, f.TasaInteres, f.Plazo, f.FechaOtorgamiento)
	if err != nil {
		return core.Credit{}, fmt.Errorf("create credit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Credit{}, fmt.Errorf("read inserted id: %w", err)
	}

	slog.InfoContext(ctx, "Credit saved to SQLite", "id", id, "cliente", f.Cliente, "monto", f.Monto)

	return core.Credit{ID: core.NewCreditID(id), CreditFields: f}, nil
}

func (r *SQLiteRepository) UpdateCredit(ctx context.Context, id core.CreditID, f core.CreditFields) (core.Credit, error) {
	n, err := rowID(id)
	if err != nil {
		return core.Credit{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE creditos SET cliente = ?, monto = ?, tasa_interes = ?, plazo = ?, fecha_otorgamiento = ? WHERE id = ?`,
		f.Cliente, f.Monto, f.TasaInteres, f.Plazo, f.FechaOtorgamiento, n)
	if err != nil {
		return core.Credit{}, fmt.Errorf("update credit %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return core.Credit{}, ErrNotFound
	}
	return core.Credit{ID: id, CreditFields: f}, nil
}

func (r *SQLiteRepository) DeleteCredit(ctx context.Context, id core.CreditID) error {
	n, err := rowID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM creditos WHERE id = ?", n)
	if err != nil {
		return fmt.Errorf("delete credit %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// TotalMonto sums monto over all credits; zero when the table is empty.
func (r *SQLiteRepository) TotalMonto(ctx context.Context) (float64, error) {
	var total sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, "SELECT SUM(monto) FROM creditos").Scan(&total); err != nil {
		return 0, fmt.Errorf("sum monto: %w", err)
	}
	return total.Float64, nil
}

// MontoByCliente groups totals by cliente in order of first appearance.
func (r *SQLiteRepository) MontoByCliente(ctx context.Context) ([]ClientTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cliente, SUM(monto) FROM creditos GROUP BY cliente ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("group by cliente: %w", err)
	}
	defer rows.Close()

	totals := make([]ClientTotal, 0)
	for rows.Next() {
		var ct ClientTotal
		if err := rows.Scan(&ct.Cliente, &ct.Total); err != nil {
			return nil, fmt.Errorf("scan client total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// RecordAudit stores e. Replayed events (same EventID) are ignored and return id 0.
func (r *SQLiteRepository) RecordAudit(ctx context.Context, e AuditEntry) (int64, error) {
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO credit_audit
			(event_id, event, credit_id, cliente, monto, tasa_interes, plazo, fecha_otorgamiento, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, e.Event, e.CreditID.String(), e.Fields.Cliente, e.Fields.Monto,
		e.Fields.TasaInteres, e.Fields.Plazo, e.Fields.FechaOtorgamiento, occurred.UTC())
	if err != nil {
		return 0, fmt.Errorf("record audit %s: %w", e.EventID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return 0, nil
	}
	return res.LastInsertId()
}

// PendingAudit returns up to limit unsynced entries, oldest first.
func (r *SQLiteRepository) PendingAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, event, credit_id, cliente, monto, tasa_interes, plazo, fecha_otorgamiento, occurred_at
		 FROM credit_audit WHERE synced_at IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e        AuditEntry
			creditID string
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.Event, &creditID, &e.Fields.Cliente, &e.Fields.Monto,
			&e.Fields.TasaInteres, &e.Fields.Plazo, &e.Fields.FechaOtorgamiento, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.CreditID = core.CreditID(creditID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) MarkAuditSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE credit_audit SET synced_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark audit %d synced: %w", id, err)
	}
	return nil
}
