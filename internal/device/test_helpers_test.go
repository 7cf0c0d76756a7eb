package device

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the device tables applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "device-test.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			model TEXT,
			type TEXT,
			state TEXT NOT NULL,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL
		);

		CREATE TABLE state_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			state TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'poll',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating device tables: %v", err)
	}

	return db
}

// sampleThermostat returns a fully populated thermostat for tests.
func sampleThermostat(id, name string) *Thermostat {
	current := 19.5
	target := 21.0
	boilerOn := true

	return &Thermostat{
		ID:                 id,
		Name:               name,
		Model:              "NC-1",
		Type:               "thermostat",
		CurrentTemperature: &current,
		TargetTemperature:  &target,
		Mode:               "program1",
		BoilerOn:           &boilerOn,
		Battery:            "OK",
		Connected:          true,
		Attributes: map[string]string{
			"Current_Temperature": "19.5",
			"Set_Temperature":     "21.0",
		},
	}
}
