package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRules_GetPreset(t *testing.T) {
	r := &Rules{Presets: map[string]Preset{
		"Default": {FlightBoard: &FlightBoard{Table: ".i"}},
		"fr24":    {FlightBoard: &FlightBoard{Table: ".c"}},
	}}
	p, ok := r.GetPreset("DEFAULT")
	if !ok || p.FlightBoard.Table != ".i" {
		t.Fatalf("case-insensitive lookup failed: %+v", p)
	}
	if _, ok := r.GetPreset("missing"); ok {
		t.Fatalf("no lowercase default key, expect miss")
	}
	var nilRules *Rules
	if _, ok := nilRules.GetPreset("x"); ok {
		t.Fatalf("nil rules should miss")
	}
}

func TestRules_LoadAndDefaults(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "rules.yaml")
	_ = os.WriteFile(f, []byte("default:\n  flight_board:\n    table: \"#arrivals\"\n    challenge: [\"robot\"]\n"), 0644)
	r, err := Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fb := r.FlightBoardFor("anything")
	if fb.Table != "#arrivals" {
		t.Fatalf("table=%q", fb.Table)
	}
	if fb.Row == "" || fb.City == "" || fb.Status == "" {
		t.Fatalf("defaults not filled: %+v", fb)
	}
	if len(fb.Challenge) != 1 || fb.Challenge[0] != "robot" {
		t.Fatalf("challenge override lost: %v", fb.Challenge)
	}

	var none *Rules
	if got := none.FlightBoardFor(""); got.Table != DefaultFlightBoard().Table {
		t.Fatalf("nil rules should yield builtin board")
	}
}
