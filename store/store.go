// Package store persists frozen track sets in a SQLite database so a run can
// be reloaded without its original track document.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/swdee/go-trackbuilder/loco"
	"github.com/swdee/go-trackbuilder/tracker"

	_ "modernc.org/sqlite"
)

var (
	// ErrRunExists is returned when saving under a run id already stored
	ErrRunExists = errors.New("run already stored")
	// ErrRunNotFound is returned when loading a run id that is not stored
	ErrRunNotFound = errors.New("run not found")
)

// schema.sql creates the run, image, category and step tables
//
//go:embed schema.sql
var schemaSQL string

// Store is a SQLite backed track set store
type Store struct {
	db *sql.DB
}

// Run summarises a stored run
type Run struct {
	ID     string
	Notes  string
	Tracks int
	Steps  int
}

// Open opens or creates the database at path and applies the schema
func Open(ctx context.Context, path string) (*Store, error) {

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, fmt.Errorf("error opening track store: %w", err)
	}

	// one connection keeps in-memory databases shared between statements
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error applying track store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores the images, categories and annotation records of a track
// document under runID in a single transaction
func (s *Store) Save(ctx context.Context, runID, notes string, doc loco.Document) (err error) {

	tx, err := s.db.BeginTx(ctx, nil)

	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var exists int

	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM track_runs WHERE run_id = ?", runID).Scan(&exists)

	if err != nil {
		return fmt.Errorf("error checking run %s: %w", runID, err)
	}

	if exists > 0 {
		return fmt.Errorf("run %s: %w", runID, ErrRunExists)
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO track_runs (run_id, notes) VALUES (?, ?)", runID, notes); err != nil {
		return fmt.Errorf("error inserting run %s: %w", runID, err)
	}

	for _, img := range doc.Images {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_images (run_id, image_id, file_name, width, height, frame_index)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, img.ID, img.FileName, img.Width, img.Height, img.FrameIndex)

		if err != nil {
			return fmt.Errorf("error inserting image %d: %w", img.ID, err)
		}
	}

	for _, c := range doc.Categories {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO run_categories (run_id, category_id, name) VALUES (?, ?, ?)",
			runID, c.ID, c.Name)

		if err != nil {
			return fmt.Errorf("error inserting category %d: %w", c.ID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_steps (run_id, annotation_id, image_id, category_id, track_id,
			cx, cy, width, height, area, iscrowd, trackmap_index, vid_id,
			color_r, color_g, color_b)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	if err != nil {
		return fmt.Errorf("error preparing step insert: %w", err)
	}

	defer stmt.Close()

	for _, a := range doc.Annotations {
		_, err = stmt.ExecContext(ctx, runID, a.ID, a.ImageID, a.CategoryID, a.TrackID,
			a.BBox[0], a.BBox[1], a.BBox[2], a.BBox[3], a.Area, a.IsCrowd,
			a.TrackmapIndex, a.VidID, a.TrackColor[0], a.TrackColor[1], a.TrackColor[2])

		if err != nil {
			return fmt.Errorf("error inserting annotation %d: %w", a.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing run %s: %w", runID, err)
	}

	return nil
}

// Load reads the run back as a track document equal to the one saved
func (s *Store) Load(ctx context.Context, runID string) (loco.Document, error) {

	var doc loco.Document
	var exists int

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM track_runs WHERE run_id = ?", runID).Scan(&exists)

	if err != nil {
		return doc, fmt.Errorf("error checking run %s: %w", runID, err)
	}

	if exists == 0 {
		return doc, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	if doc.Images, err = s.loadImages(ctx, runID); err != nil {
		return loco.Document{}, err
	}

	if doc.Categories, err = s.loadCategories(ctx, runID); err != nil {
		return loco.Document{}, err
	}

	if doc.Annotations, err = s.loadSteps(ctx, runID); err != nil {
		return loco.Document{}, err
	}

	return doc, nil
}

// loadImages reads the frame dictionary of a run in image id order
func (s *Store) loadImages(ctx context.Context, runID string) ([]loco.Image, error) {

	rows, err := s.db.QueryContext(ctx, `
		SELECT image_id, file_name, width, height, frame_index
		FROM run_images WHERE run_id = ? ORDER BY image_id`, runID)

	if err != nil {
		return nil, fmt.Errorf("error querying images: %w", err)
	}

	defer rows.Close()

	images := []loco.Image{}

	for rows.Next() {
		var img loco.Image

		if err := rows.Scan(&img.ID, &img.FileName, &img.Width, &img.Height,
			&img.FrameIndex); err != nil {
			return nil, fmt.Errorf("error scanning image: %w", err)
		}

		images = append(images, img)
	}

	return images, rows.Err()
}

// loadCategories reads the categories of a run, nil when none were saved
func (s *Store) loadCategories(ctx context.Context, runID string) ([]loco.Category, error) {

	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, name FROM run_categories
		WHERE run_id = ? ORDER BY category_id`, runID)

	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", err)
	}

	defer rows.Close()

	var cats []loco.Category

	for rows.Next() {
		var c loco.Category

		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("error scanning category: %w", err)
		}

		cats = append(cats, c)
	}

	return cats, rows.Err()
}

// loadSteps reads the annotation records of a run in record id order
func (s *Store) loadSteps(ctx context.Context, runID string) ([]loco.Annotation, error) {

	rows, err := s.db.QueryContext(ctx, `
		SELECT annotation_id, image_id, category_id, track_id, cx, cy, width, height,
			area, iscrowd, trackmap_index, vid_id, color_r, color_g, color_b
		FROM run_steps WHERE run_id = ? ORDER BY annotation_id`, runID)

	if err != nil {
		return nil, fmt.Errorf("error querying steps: %w", err)
	}

	defer rows.Close()

	anns := []loco.Annotation{}

	for rows.Next() {
		var a loco.Annotation
		var r, g, b uint8

		err := rows.Scan(&a.ID, &a.ImageID, &a.CategoryID, &a.TrackID,
			&a.BBox[0], &a.BBox[1], &a.BBox[2], &a.BBox[3], &a.Area, &a.IsCrowd,
			&a.TrackmapIndex, &a.VidID, &r, &g, &b)

		if err != nil {
			return nil, fmt.Errorf("error scanning step: %w", err)
		}

		a.TrackColor = tracker.Color{r, g, b}
		a.Segmentation = [][]float64{}
		anns = append(anns, a)
	}

	return anns, rows.Err()
}

// Runs lists the stored runs with their track and step counts
func (s *Store) Runs(ctx context.Context) ([]Run, error) {

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.notes,
			COUNT(DISTINCT st.track_id), COUNT(st.annotation_id)
		FROM track_runs r
		LEFT JOIN run_steps st ON st.run_id = r.run_id
		GROUP BY r.run_id, r.notes, r.created_at
		ORDER BY r.created_at, r.run_id`)

	if err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}

	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var r Run

		if err := rows.Scan(&r.ID, &r.Notes, &r.Tracks, &r.Steps); err != nil {
			return nil, fmt.Errorf("error scanning run: %w", err)
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Delete removes a stored run and everything saved under it
func (s *Store) Delete(ctx context.Context, runID string) error {

	res, err := s.db.ExecContext(ctx, "DELETE FROM track_runs WHERE run_id = ?", runID)

	if err != nil {
		return fmt.Errorf("error deleting run %s: %w", runID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	return nil
}
