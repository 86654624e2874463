// 包 store 提供 SQLite 存储：只保存“当前快照”（每次运行整体替换）与运行审计记录，不保留航班历史。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-flight-board/internal/model"
)

// ErrNoSnapshot 表示库中尚无快照。
var ErrNoSnapshot = errors.New("no snapshot stored")

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// Run 为一次运行的审计记录。
type Run struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Arrivals   int
	Departures int
	Error      string
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshot (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            run_id TEXT,
            last_updated TEXT,
            airport_code TEXT,
            airport_icao TEXT,
            airport_name TEXT,
            airport_city TEXT,
            airport_timezone TEXT,
            error TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS flights (
            direction TEXT NOT NULL,
            position INTEGER NOT NULL,
            flight_number TEXT NOT NULL,
            airline TEXT,
            airline_code TEXT,
            origin TEXT,
            origin_code TEXT,
            destination TEXT,
            destination_code TEXT,
            scheduled TEXT,
            estimated TEXT,
            actual TEXT,
            status TEXT,
            terminal TEXT,
            gate TEXT,
            PRIMARY KEY (direction, position),
            UNIQUE (direction, flight_number)
        );`,
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            source TEXT,
            started_at INTEGER,
            finished_at INTEGER,
            arrivals INTEGER,
            departures INTEGER,
            error TEXT
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// ReplaceSnapshot 在一个事务内用新快照整体替换旧快照。
func (s *SQLite) ReplaceSnapshot(ctx context.Context, runID string, snap model.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM flights`); err != nil {
		return fmt.Errorf("delete flights: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM snapshot`); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	a := snap.Airport
	if _, err = tx.ExecContext(ctx, `INSERT INTO snapshot(id, run_id, last_updated, airport_code, airport_icao, airport_name, airport_city, airport_timezone, error)
        VALUES(1,?,?,?,?,?,?,?,?)`,
		runID, snap.LastUpdated, a.Code, a.ICAO, a.Name, a.City, a.Timezone, snap.Error); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO flights(direction, position, flight_number, airline, airline_code,
        origin, origin_code, destination, destination_code, scheduled, estimated, actual, status, terminal, gate)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert flight: %w", err)
	}
	defer stmt.Close()
	for _, dir := range model.Directions() {
		list := snap.Arrivals
		if dir == model.Departure {
			list = snap.Departures
		}
		for i, f := range list {
			if _, err = stmt.ExecContext(ctx, string(dir), i, f.FlightNumber, f.Airline, f.AirlineCode,
				f.Origin, f.OriginCode, f.Destination, f.DestinationCode,
				f.Scheduled, f.Estimated, f.Actual, string(f.Status), f.Terminal, f.Gate); err != nil {
				return fmt.Errorf("insert %s %s: %w", dir, f.FlightNumber, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadSnapshot 读取当前快照，列表顺序与写入时一致。
func (s *SQLite) LoadSnapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	var errText sql.NullString
	a := &snap.Airport
	row := s.db.QueryRowContext(ctx, `SELECT last_updated, airport_code, airport_icao, airport_name, airport_city, airport_timezone, error
        FROM snapshot WHERE id = 1`)
	if err := row.Scan(&snap.LastUpdated, &a.Code, &a.ICAO, &a.Name, &a.City, &a.Timezone, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snap, ErrNoSnapshot
		}
		return snap, fmt.Errorf("query snapshot: %w", err)
	}
	snap.Error = errText.String

	rows, err := s.db.QueryContext(ctx, `SELECT direction, flight_number, COALESCE(airline,''), COALESCE(airline_code,''),
        origin, origin_code, destination, destination_code, scheduled, estimated, actual, COALESCE(status,''), terminal, gate
        FROM flights ORDER BY direction, position`)
	if err != nil {
		return snap, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dir, status string
		var f model.Flight
		if err := rows.Scan(&dir, &f.FlightNumber, &f.Airline, &f.AirlineCode,
			&f.Origin, &f.OriginCode, &f.Destination, &f.DestinationCode,
			&f.Scheduled, &f.Estimated, &f.Actual, &status, &f.Terminal, &f.Gate); err != nil {
			return snap, fmt.Errorf("scan flights: %w", err)
		}
		f.Status = model.Status(status)
		switch d := model.Direction(dir); {
		case !d.Valid():
			return snap, fmt.Errorf("scan flights: unknown direction %q", dir)
		case d == model.Departure:
			snap.Departures = append(snap.Departures, f)
		default:
			snap.Arrivals = append(snap.Arrivals, f)
		}
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate flights: %w", err)
	}
	snap.Normalize()
	return snap, nil
}

// RecordRun 写入（或更新）一条运行记录。
func (s *SQLite) RecordRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return errors.New("run.id required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs(id, source, started_at, finished_at, arrivals, departures, error)
        VALUES(?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET finished_at=excluded.finished_at, arrivals=excluded.arrivals,
            departures=excluded.departures, error=excluded.error`,
		r.ID, r.Source, unixOrNow(r.StartedAt), unixOrNow(r.FinishedAt), r.Arrivals, r.Departures, r.Error)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// PruneRuns 按天数阈值清理过期的运行记录；days<=0 不清理。
func (s *SQLite) PruneRuns(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func unixOrNow(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}
