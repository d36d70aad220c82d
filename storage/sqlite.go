// Package storage persists the note graph to a local sqlite database. The
// whole canvas is small enough that save replaces every table in one
// transaction; a reader never sees a half-written graph.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"canopy/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	text       TEXT NOT NULL DEFAULT '',
	x          REAL NOT NULL DEFAULT 0,
	y          REAL NOT NULL DEFAULT 0,
	grade      REAL,
	citations  TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS edges (
	id     TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	target TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ghosts (
	id             TEXT PRIMARY KEY,
	parent_id      TEXT NOT NULL,
	suggested_type TEXT NOT NULL,
	direction      TEXT NOT NULL,
	text           TEXT NOT NULL DEFAULT '',
	citations      TEXT NOT NULL DEFAULT '[]',
	status         TEXT NOT NULL,
	failure        TEXT
);
`

// Store is a sqlite-backed graph snapshot store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the whole graph.
func (s *Store) Load() (model.Snapshot, error) {
	var snap model.Snapshot

	rows, err := s.db.Query(`SELECT id, type, title, text, x, y, grade, citations, created_at FROM nodes`)
	if err != nil {
		return snap, fmt.Errorf("load nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n model.Node
		var grade sql.NullFloat64
		var citations, createdAt string
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Text, &n.X, &n.Y, &grade, &citations, &createdAt); err != nil {
			return snap, fmt.Errorf("scan node: %w", err)
		}
		if grade.Valid {
			g := grade.Float64
			n.Grade = &g
		}
		if err := json.Unmarshal([]byte(citations), &n.Citations); err != nil {
			return snap, fmt.Errorf("decode citations for node %s: %w", n.ID, err)
		}
		if n.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return snap, fmt.Errorf("parse created_at for node %s: %w", n.ID, err)
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	edgeRows, err := s.db.Query(`SELECT id, source, target FROM edges`)
	if err != nil {
		return snap, fmt.Errorf("load edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e model.Edge
		if err := edgeRows.Scan(&e.ID, &e.Source, &e.Target); err != nil {
			return snap, fmt.Errorf("scan edge: %w", err)
		}
		snap.Edges = append(snap.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return snap, err
	}

	ghostRows, err := s.db.Query(`SELECT id, parent_id, suggested_type, direction, text, citations, status, failure FROM ghosts`)
	if err != nil {
		return snap, fmt.Errorf("load ghosts: %w", err)
	}
	defer ghostRows.Close()
	for ghostRows.Next() {
		var g model.GhostProposal
		var direction, citations string
		var failure sql.NullString
		if err := ghostRows.Scan(&g.ID, &g.ParentID, &g.SuggestedType, &direction, &g.Text, &citations, &g.Status, &failure); err != nil {
			return snap, fmt.Errorf("scan ghost: %w", err)
		}
		if err := json.Unmarshal([]byte(direction), &g.Direction); err != nil {
			return snap, fmt.Errorf("decode direction for ghost %s: %w", g.ID, err)
		}
		if err := json.Unmarshal([]byte(citations), &g.Citations); err != nil {
			return snap, fmt.Errorf("decode citations for ghost %s: %w", g.ID, err)
		}
		if failure.Valid {
			var f model.GhostFailure
			if err := json.Unmarshal([]byte(failure.String), &f); err != nil {
				return snap, fmt.Errorf("decode failure for ghost %s: %w", g.ID, err)
			}
			g.Failure = &f
		}
		snap.Ghosts = append(snap.Ghosts, g)
	}
	return snap, ghostRows.Err()
}

// Save replaces the stored graph with snap in one transaction.
func (s *Store) Save(snap model.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"nodes", "edges", "ghosts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, n := range snap.Nodes {
		citations, err := json.Marshal(orEmpty(n.Citations))
		if err != nil {
			return fmt.Errorf("encode citations for node %s: %w", n.ID, err)
		}
		var grade any
		if n.Grade != nil {
			grade = *n.Grade
		}
		createdAt := n.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := tx.Exec(
			`INSERT INTO nodes (id, type, title, text, x, y, grade, citations, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, n.Type, n.Title, n.Text, n.X, n.Y, grade, string(citations), createdAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	for _, e := range snap.Edges {
		if _, err := tx.Exec(
			`INSERT INTO edges (id, source, target) VALUES (?, ?, ?)`,
			e.ID, e.Source, e.Target,
		); err != nil {
			return fmt.Errorf("insert edge %s: %w", e.ID, err)
		}
	}

	for _, g := range snap.Ghosts {
		direction, err := json.Marshal(g.Direction)
		if err != nil {
			return fmt.Errorf("encode direction for ghost %s: %w", g.ID, err)
		}
		citations, err := json.Marshal(orEmpty(g.Citations))
		if err != nil {
			return fmt.Errorf("encode citations for ghost %s: %w", g.ID, err)
		}
		var failure any
		if g.Failure != nil {
			encoded, err := json.Marshal(g.Failure)
			if err != nil {
				return fmt.Errorf("encode failure for ghost %s: %w", g.ID, err)
			}
			failure = string(encoded)
		}
		if _, err := tx.Exec(
			`INSERT INTO ghosts (id, parent_id, suggested_type, direction, text, citations, status, failure) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, g.ParentID, g.SuggestedType, string(direction), g.Text, string(citations), g.Status, failure,
		); err != nil {
			return fmt.Errorf("insert ghost %s: %w", g.ID, err)
		}
	}

	return tx.Commit()
}

func orEmpty(citations []model.Citation) []model.Citation {
	if citations == nil {
		return []model.Citation{}
	}
	return citations
}
