// Package store persists triage decisions and the manually tracked people
// list in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName = "sqlite"

	createDecisionsTableStatement = `CREATE TABLE IF NOT EXISTS decisions (
		username TEXT PRIMARY KEY,
		decision TEXT DEFAULT 'undecided',
		notes TEXT DEFAULT ''
	)`
	createPeopleTableStatement = `CREATE TABLE IF NOT EXISTS people (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		notes TEXT,
		added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	upsertDecisionStatement = `INSERT INTO decisions (username, decision, notes) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET decision = excluded.decision, notes = excluded.notes`
	selectDecisionsQuery = `SELECT username, decision, notes FROM decisions`

	insertPersonStatement      = `INSERT INTO people (name, notes) VALUES (?, ?)`
	selectPeopleQuery          = `SELECT id, name, COALESCE(notes, ''), added_at FROM people ORDER BY added_at DESC, id DESC`
	updatePersonNotesStatement = `UPDATE people SET notes = ? WHERE id = ?`
	deletePersonStatement      = `DELETE FROM people WHERE id = ?`

	openDatabaseErrFormat   = "open database %s: %w"
	migrateErrFormat        = "create table: %w"
	upsertDecisionErrFormat = "upsert decision for %s: %w"
	listDecisionsErrFormat  = "list decisions: %w"
	createPersonErrFormat   = "create person: %w"
	listPeopleErrFormat     = "list people: %w"
	updatePersonErrFormat   = "update person %d: %w"
	deletePersonErrFormat   = "delete person %d: %w"

	// DefaultDecision is the triage state assumed for any username that has
	// no stored record.
	DefaultDecision = "undecided"
)

// ErrMissingUsername is returned when a decision upsert names no username.
var ErrMissingUsername = errors.New("decision upsert requires a username")

// ErrMissingPersonName is returned when a tracked person is created with a
// blank name.
var ErrMissingPersonName = errors.New("tracked person requires a name")

// Decision is one persisted triage record keyed by username. The decision
// value is free-form at this layer; the well-known values are a presentation
// convention.
type Decision struct {
	Username string `json:"username"`
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

// Person is one manually tracked entry, independent of any scraped account.
type Person struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Notes   string    `json:"notes"`
	AddedAt time.Time `json:"added_at"`
}

// Store wraps the SQLite database holding decisions and tracked people.
type Store struct {
	database *sql.DB
}

// Open opens (creating if necessary) the database at databasePath and applies
// the schema.
func Open(databasePath string) (*Store, error) {
	database, openErr := sql.Open(sqliteDriverName, databasePath)
	if openErr != nil {
		return nil, fmt.Errorf(openDatabaseErrFormat, databasePath, openErr)
	}
	storeInstance := &Store{database: database}
	if migrateErr := storeInstance.migrate(); migrateErr != nil {
		database.Close()
		return nil, migrateErr
	}
	return storeInstance, nil
}

// Close releases the underlying database handle.
func (storeInstance *Store) Close() error {
	return storeInstance.database.Close()
}

func (storeInstance *Store) migrate() error {
	for _, statement := range []string{createDecisionsTableStatement, createPeopleTableStatement} {
		if _, execErr := storeInstance.database.Exec(statement); execErr != nil {
			return fmt.Errorf(migrateErrFormat, execErr)
		}
	}
	return nil
}

// UpsertDecision inserts or overwrites the decision record for a username.
// Both decision and notes are replaced as a unit.
func (storeInstance *Store) UpsertDecision(ctx context.Context, record Decision) error {
	if strings.TrimSpace(record.Username) == "" {
		return ErrMissingUsername
	}
	if _, execErr := storeInstance.database.ExecContext(ctx, upsertDecisionStatement,
		record.Username, record.Decision, record.Notes); execErr != nil {
		return fmt.Errorf(upsertDecisionErrFormat, record.Username, execErr)
	}
	return nil
}

// AllDecisions returns every stored decision record keyed by username.
func (storeInstance *Store) AllDecisions(ctx context.Context) (map[string]Decision, error) {
	rows, queryErr := storeInstance.database.QueryContext(ctx, selectDecisionsQuery)
	if queryErr != nil {
		return nil, fmt.Errorf(listDecisionsErrFormat, queryErr)
	}
	defer rows.Close()

	decisionsByUsername := map[string]Decision{}
	for rows.Next() {
		var record Decision
		if scanErr := rows.Scan(&record.Username, &record.Decision, &record.Notes); scanErr != nil {
			return nil, fmt.Errorf(listDecisionsErrFormat, scanErr)
		}
		decisionsByUsername[record.Username] = record
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf(listDecisionsErrFormat, rowsErr)
	}
	return decisionsByUsername, nil
}

// CreatePerson adds a tracked person and returns the assigned identifier.
// The name must be non-blank; notes may be empty.
func (storeInstance *Store) CreatePerson(ctx context.Context, name string, notes string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, ErrMissingPersonName
	}
	result, execErr := storeInstance.database.ExecContext(ctx, insertPersonStatement, name, notes)
	if execErr != nil {
		return 0, fmt.Errorf(createPersonErrFormat, execErr)
	}
	personID, idErr := result.LastInsertId()
	if idErr != nil {
		return 0, fmt.Errorf(createPersonErrFormat, idErr)
	}
	return personID, nil
}

// ListPeople returns all tracked people, newest first.
func (storeInstance *Store) ListPeople(ctx context.Context) ([]Person, error) {
	rows, queryErr := storeInstance.database.QueryContext(ctx, selectPeopleQuery)
	if queryErr != nil {
		return nil, fmt.Errorf(listPeopleErrFormat, queryErr)
	}
	defer rows.Close()

	people := []Person{}
	for rows.Next() {
		var person Person
		if scanErr := rows.Scan(&person.ID, &person.Name, &person.Notes, &person.AddedAt); scanErr != nil {
			return nil, fmt.Errorf(listPeopleErrFormat, scanErr)
		}
		people = append(people, person)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf(listPeopleErrFormat, rowsErr)
	}
	return people, nil
}

// UpdatePersonNotes replaces the notes of a tracked person. Updating an
// absent identifier is a quiet no-op.
func (storeInstance *Store) UpdatePersonNotes(ctx context.Context, personID int64, notes string) error {
	if _, execErr := storeInstance.database.ExecContext(ctx, updatePersonNotesStatement, notes, personID); execErr != nil {
		return fmt.Errorf(updatePersonErrFormat, personID, execErr)
	}
	return nil
}

// DeletePerson removes a tracked person. Deleting an absent identifier
// succeeds.
func (storeInstance *Store) DeletePerson(ctx context.Context, personID int64) error {
	if _, execErr := storeInstance.database.ExecContext(ctx, deletePersonStatement, personID); execErr != nil {
		return fmt.Errorf(deletePersonErrFormat, personID, execErr)
	}
	return nil
}
