package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-flight-board/internal/model"
)

func sampleSnapshot() model.Snapshot {
	return model.Snapshot{
		LastUpdated: "2026-10-16T12:00:00-06:00",
		Airport:     model.Airport{Code: "PVR", ICAO: "MMPR", Name: "Aeropuerto Internacional Lic. Gustavo Díaz Ordaz", City: "Puerto Vallarta", Timezone: "America/Bahia_Banderas"},
		Arrivals: []model.Flight{
			{FlightNumber: "AM2", Airline: "Aeroméxico", AirlineCode: "AM", Origin: model.Str("Guadalajara"), OriginCode: model.Str("GDL"),
				Scheduled: model.Str("2026-10-16T07:00:00-06:00"), Status: model.StatusLanded, Gate: model.Str("12")},
			{FlightNumber: "AM1", Airline: "Aeroméxico", AirlineCode: "AM", Origin: model.Str("Monterrey"), OriginCode: model.Str("MTY"),
				Scheduled: model.Str("2026-10-16T09:00:00-06:00"), Status: model.StatusScheduled},
		},
		Departures: []model.Flight{
			{FlightNumber: "AM2", Airline: "Aeroméxico", AirlineCode: "AM", Destination: model.Str("Cancún"), DestinationCode: model.Str("CUN"),
				Scheduled: model.Str("08:30"), Status: model.Status("Boarding")},
		},
	}
}

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "flights.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_ReplaceAndLoad(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	if _, err := s.LoadSnapshot(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("empty db err=%v want ErrNoSnapshot", err)
	}
	in := sampleSnapshot()
	if err := s.ReplaceSnapshot(ctx, "run-1", in); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Airport != in.Airport || got.LastUpdated != in.LastUpdated {
		t.Fatalf("meta mismatch: %+v", got)
	}
	if len(got.Arrivals) != 2 || got.Arrivals[0].FlightNumber != "AM2" || got.Arrivals[1].FlightNumber != "AM1" {
		t.Fatalf("arrival order not preserved: %+v", got.Arrivals)
	}
	a := got.Arrivals[0]
	if a.Destination != nil || a.DestinationCode != nil || model.Deref(a.OriginCode) != "GDL" || model.Deref(a.Gate) != "12" {
		t.Fatalf("nullable fields not round-tripped: %+v", a)
	}
	if a.Estimated != nil || a.Terminal != nil {
		t.Fatalf("absent fields should stay nil: %+v", a)
	}
	if len(got.Departures) != 1 || got.Departures[0].Status != "Boarding" || got.Departures[0].Origin != nil {
		t.Fatalf("departure mismatch: %+v", got.Departures)
	}
}

func TestSQLite_ReplaceDropsPreviousSnapshot(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.ReplaceSnapshot(ctx, "run-1", sampleSnapshot()); err != nil {
		t.Fatalf("replace 1: %v", err)
	}
	degraded := model.Snapshot{LastUpdated: "2026-10-16T13:00:00-06:00", Airport: sampleSnapshot().Airport, Error: "upstream down"}
	if err := s.ReplaceSnapshot(ctx, "run-2", degraded); err != nil {
		t.Fatalf("replace 2: %v", err)
	}
	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Error != "upstream down" || got.Arrivals == nil || len(got.Arrivals) != 0 || len(got.Departures) != 0 {
		t.Fatalf("old flights leaked into new snapshot: %+v", got)
	}
}

func TestSQLite_DuplicateFlightRollsBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.ReplaceSnapshot(ctx, "run-1", sampleSnapshot()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	bad := sampleSnapshot()
	bad.Arrivals = append(bad.Arrivals, bad.Arrivals[0])
	if err := s.ReplaceSnapshot(ctx, "run-2", bad); err == nil {
		t.Fatalf("duplicate flight number should violate unique constraint")
	}
	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load after rollback: %v", err)
	}
	if len(got.Arrivals) != 2 {
		t.Fatalf("rollback lost previous snapshot: %d arrivals", len(got.Arrivals))
	}
}

func TestSQLite_RunsAuditAndPrune(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	now := time.Now()
	old := Run{ID: "old", Source: "scrape", StartedAt: now.AddDate(0, 0, -40), FinishedAt: now.AddDate(0, 0, -40)}
	if err := s.RecordRun(ctx, old); err != nil {
		t.Fatalf("record old: %v", err)
	}
	cur := Run{ID: "cur", Source: "aeroapi", StartedAt: now}
	if err := s.RecordRun(ctx, cur); err != nil {
		t.Fatalf("record cur: %v", err)
	}
	cur.Arrivals, cur.Departures, cur.Error = 10, 12, ""
	if err := s.RecordRun(ctx, cur); err != nil {
		t.Fatalf("update cur: %v", err)
	}
	if err := s.RecordRun(ctx, Run{}); err == nil {
		t.Fatalf("empty run id should fail")
	}

	var arrivals, departures int
	if err := s.db.QueryRowContext(ctx, `SELECT arrivals, departures FROM runs WHERE id = 'cur'`).Scan(&arrivals, &departures); err != nil {
		t.Fatalf("query cur: %v", err)
	}
	if arrivals != 10 || departures != 12 {
		t.Fatalf("unexpected counts: arrivals=%d departures=%d", arrivals, departures)
	}
	if got := countRuns(t, s); got != 2 {
		t.Fatalf("runs=%d, want 2", got)
	}

	n, err := s.PruneRuns(ctx, 30)
	if err != nil || n != 1 {
		t.Fatalf("prune: n=%d err=%v", n, err)
	}
	if got := countRuns(t, s); got != 1 {
		t.Fatalf("runs after prune=%d, want 1", got)
	}
}

func countRuns(t *testing.T, s *SQLite) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	return n
}

func TestSQLite_LoadRejectsUnknownDirection(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.ReplaceSnapshot(ctx, "run-1", sampleSnapshot()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO flights(direction, position, flight_number) VALUES('transfers', 0, 'XX1')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.LoadSnapshot(ctx); err == nil || !strings.Contains(err.Error(), "transfers") {
		t.Fatalf("expected unknown direction error, got %v", err)
	}
}
