// Package archive keeps encoded cities in a SQLite database by name.
package archive

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/voidshard/cityblocks"
)

var (
	// ErrNotFound implies no city is stored under the given name
	ErrNotFound = errors.New("city not found")
)

const schema = `CREATE TABLE IF NOT EXISTS cities (
	name        TEXT PRIMARY KEY,
	seed        INTEGER NOT NULL,
	population  INTEGER NOT NULL,
	steps       INTEGER NOT NULL,
	structures  INTEGER NOT NULL,
	data        BLOB NOT NULL,
	updated_at  INTEGER NOT NULL
)`

// Entry describes a stored city without decoding it
type Entry struct {
	Name       string
	Seed       int64
	Population int64
	Steps      int64
	Structures int
	UpdatedAt  time.Time
}

// Store persists cities in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) a SQLite archive at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("archive path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Put stores c under name, replacing anything already there.
func (s *Store) Put(ctx context.Context, name string, c *cityblocks.City) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("city name is required")
	}

	data, err := c.Encode()
	if err != nil {
		return errors.Wrapf(err, "encode city %s", name)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO cities (name, seed, population, steps, structures, data, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   seed = excluded.seed,
		   population = excluded.population,
		   steps = excluded.steps,
		   structures = excluded.structures,
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		name,
		c.Seed(),
		c.Population(),
		c.Steps(),
		len(c.Structures()),
		data,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return errors.Wrapf(err, "put city %s", name)
	}
	return nil
}

// Get loads the city stored under name.
func (s *Store) Get(ctx context.Context, bcfg *cityblocks.BuilderConfig, name string) (*cityblocks.City, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT data FROM cities WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNotFound, name)
	} else if err != nil {
		return nil, errors.Wrapf(err, "get city %s", name)
	}

	c, err := cityblocks.Decode(bcfg, data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode city %s", name)
	}
	return c, nil
}

// List returns all stored cities ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT name, seed, population, steps, structures, updated_at FROM cities ORDER BY name`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list cities")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			updated int64
		)
		if err := rows.Scan(&e.Name, &e.Seed, &e.Population, &e.Steps, &e.Structures, &updated); err != nil {
			return nil, errors.Wrap(err, "scan city")
		}
		e.UpdatedAt = time.UnixMilli(updated).UTC()
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "list cities")
}

// Delete removes the city stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cities WHERE name = ?`, name)
	if err != nil {
		return errors.Wrapf(err, "delete city %s", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "delete city %s", name)
	}
	if n == 0 {
		return errors.Wrap(ErrNotFound, name)
	}
	return nil
}
