package sqlite

import (
	"database/sql"
	"fmt"

	"autosendpic/internal/dto"
	"autosendpic/internal/model"
)

const pictureColumns = `id, filename, captured_at, accuracy, altitude, latitude, longitude, provider, speed, fix_time, filesize`

// PictureRepository implements repository.PictureRepository for SQLite.
type PictureRepository struct {
	db *DB
}

// NewPictureRepository creates a new SQLite picture repository.
func NewPictureRepository(db *DB) *PictureRepository {
	return &PictureRepository{db: db}
}

// Insert adds a new picture record, including the image bytes.
func (r *PictureRepository) Insert(pic *model.Picture) error {
	r.db.Lock()
	defer r.db.Unlock()

	loc := pic.Location
	_, err := r.db.Conn().Exec(`
		INSERT INTO pictures (id, filename, captured_at, accuracy, altitude, latitude, longitude, provider, speed, fix_time, filesize, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pic.ID, pic.Filename, pic.CapturedAt.UTC(), loc.Accuracy, loc.Altitude, loc.Latitude, loc.Longitude,
		loc.Provider, loc.Speed, loc.Time.UTC(), pic.FileSize, pic.Data)
	if err != nil {
		return fmt.Errorf("failed to insert picture: %w", err)
	}
	return nil
}

// GetByID retrieves a picture together with its image bytes.
func (r *PictureRepository) GetByID(id string) (*model.Picture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+pictureColumns+`, data FROM pictures WHERE id = ?`, id)

	pic, err := scanPicture(row, true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get picture: %w", err)
	}
	return pic, nil
}

// GetAll retrieves picture metadata (without image bytes), newest first.
func (r *PictureRepository) GetAll(filter *dto.PictureFilters) ([]model.Picture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildPictureFilter(filter)
	query := `SELECT ` + pictureColumns + ` FROM pictures WHERE 1=1` + where + ` ORDER BY captured_at DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pictures: %w", err)
	}
	defer rows.Close()

	var pictures []model.Picture
	for rows.Next() {
		pic, err := scanPicture(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan picture: %w", err)
		}
		pictures = append(pictures, *pic)
	}
	return pictures, rows.Err()
}

// GetTotalCount returns the number of pictures matching the filter.
func (r *PictureRepository) GetTotalCount(filter *dto.PictureFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildPictureFilter(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM pictures WHERE 1=1`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pictures: %w", err)
	}
	return count, nil
}

// Exists checks if a picture with the given filename exists.
func (r *PictureRepository) Exists(filename string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM pictures WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check picture existence: %w", err)
	}
	return count > 0, nil
}

// DeleteAll removes all pictures.
func (r *PictureRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM pictures`); err != nil {
		return fmt.Errorf("failed to delete pictures: %w", err)
	}
	return nil
}

func buildPictureFilter(filter *dto.PictureFilters) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	where := ""
	args := []interface{}{}

	if filter.Provider != "" {
		where += " AND provider = ?"
		args = append(args, filter.Provider)
	}
	if !filter.After.IsZero() {
		where += " AND captured_at >= ?"
		args = append(args, filter.After.UTC())
	}
	if !filter.Before.IsZero() {
		where += " AND captured_at <= ?"
		args = append(args, filter.Before.UTC())
	}
	return where, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPicture(row rowScanner, withData bool) (*model.Picture, error) {
	var pic model.Picture
	var fixTime sql.NullTime

	dest := []interface{}{
		&pic.ID, &pic.Filename, &pic.CapturedAt,
		&pic.Location.Accuracy, &pic.Location.Altitude, &pic.Location.Latitude, &pic.Location.Longitude,
		&pic.Location.Provider, &pic.Location.Speed, &fixTime, &pic.FileSize,
	}
	if withData {
		dest = append(dest, &pic.Data)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if fixTime.Valid {
		pic.Location.Time = fixTime.Time
	}
	return &pic, nil
}
