package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for thermostat persistence.
// This abstraction allows for different implementations (SQLite, mock)
// and enables unit testing without database dependencies.
type Repository interface {
	// Upsert inserts the thermostat or updates the stored row,
	// refreshing last_seen and the state snapshot.
	Upsert(ctx context.Context, t *Thermostat) error

	// GetByID retrieves a thermostat by its vendor device id.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Thermostat, error)

	// List retrieves every thermostat the bridge has seen, ordered by name.
	List(ctx context.Context) ([]Thermostat, error)

	// Delete removes a thermostat by id.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
//
// The row keeps identity and the last observed state as JSON, plus
// first_seen/last_seen so removed thermostats remain identifiable.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert inserts or refreshes the row for a thermostat.
func (r *SQLiteRepository) Upsert(ctx context.Context, t *Thermostat) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}

	stateJSON, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshalling thermostat state: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO devices (id, name, model, type, state, first_seen, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			model = excluded.model,
			type = excluded.type,
			state = excluded.state,
			last_seen = excluded.last_seen`,
		t.ID, t.Name, t.Model, t.Type, string(stateJSON), now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting device: %w", err)
	}

	return nil
}

// GetByID retrieves a thermostat by its vendor device id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Thermostat, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT state FROM devices WHERE id = ?", id)

	var stateJSON string
	if err := row.Scan(&stateJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}

	var t Thermostat
	if err := json.Unmarshal([]byte(stateJSON), &t); err != nil {
		return nil, fmt.Errorf("unmarshalling thermostat state: %w", err)
	}

	return &t, nil
}

// List retrieves all stored thermostats ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Thermostat, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT state FROM devices ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var out []Thermostat
	for rows.Next() {
		var stateJSON string
		if err := rows.Scan(&stateJSON); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}

		var t Thermostat
		if err := json.Unmarshal([]byte(stateJSON), &t); err != nil {
			return nil, fmt.Errorf("unmarshalling thermostat state: %w", err)
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return out, nil
}

// Delete removes a thermostat row.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}
