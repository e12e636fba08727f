package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

const pathColumns = `id, owner_id, name, description, data_source, publishable, refined, created_at`

// PathRepo implements ports.PathRepository with pgx.
type PathRepo struct {
	db *DB
}

// NewPathRepo creates a new PathRepo.
func NewPathRepo(db *DB) *PathRepo {
	return &PathRepo{db: db}
}

// Create inserts the path, its segments and obstacles in one transaction.
func (r *PathRepo) Create(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO path_info (id, owner_id, name, description, data_source, publishable, refined, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.OwnerID, p.Name, p.Description, p.DataSource.String(), p.Publishable, p.Refined, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert path: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range p.Segments {
		queueSegment(batch, p.ID, s)
	}
	for i := range obstacles {
		queueObstacle(batch, &obstacles[i])
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert segments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID returns a path with its segments, or domain.ErrNotFound.
func (r *PathRepo) GetByID(ctx context.Context, id string) (*domain.Path, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+pathColumns+` FROM path_info WHERE id = $1`, id)
	p, err := scanPath(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	paths := []domain.Path{p}
	if err := r.loadSegments(ctx, paths); err != nil {
		return nil, err
	}
	return &paths[0], nil
}

// ListVisible returns publishable paths plus the viewer's own, oldest first.
func (r *PathRepo) ListVisible(ctx context.Context, viewerID string) ([]domain.Path, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+pathColumns+`
		FROM path_info
		WHERE publishable OR ($1 <> '' AND owner_id = $1)
		ORDER BY created_at, id
	`, viewerID)
	if err != nil {
		return nil, err
	}
	paths, err := collectPaths(rows)
	if err != nil {
		return nil, err
	}
	return paths, r.loadSegments(ctx, paths)
}

// ListByOwner returns one page of the owner's paths, oldest first, and the total count.
func (r *PathRepo) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]domain.Path, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM path_info WHERE owner_id = $1`, ownerID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+pathColumns+`
		FROM path_info
		WHERE owner_id = $1
		ORDER BY created_at, id
		OFFSET $2 LIMIT $3
	`, ownerID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	paths, err := collectPaths(rows)
	if err != nil {
		return nil, 0, err
	}
	return paths, total, r.loadSegments(ctx, paths)
}

// ReplaceSegments upserts the given segments, removes the path's other
// segments, re-points obstacles and marks the path refined.
func (r *PathRepo) ReplaceSegments(ctx context.Context, pathID string, segments []domain.Segment, reassign map[string]string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE path_info SET refined = TRUE WHERE id = $1`, pathID)
	if err != nil {
		return fmt.Errorf("mark refined: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	keep := make([]string, len(segments))
	batch := &pgx.Batch{}
	for i, s := range segments {
		keep[i] = s.ID
		queueSegment(batch, pathID, s)
	}
	for obstacleID, segmentID := range reassign {
		batch.Queue(`UPDATE obstacles SET segment_id = NULLIF($2, '') WHERE id = $1`, obstacleID, segmentID)
	}
	batch.Queue(`DELETE FROM segments WHERE path_id = $1 AND NOT (id = ANY($2))`, pathID, keep)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("replace segments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// loadSegments fills Segments for every path with a single query.
func (r *PathRepo) loadSegments(ctx context.Context, paths []domain.Path) error {
	if len(paths) == 0 {
		return nil
	}

	ids := make([]string, len(paths))
	byID := make(map[string]int, len(paths))
	for i, p := range paths {
		ids[i] = p.ID
		byID[p.ID] = i
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+segmentColumns+`
		FROM segments
		WHERE path_id = ANY($1)
		ORDER BY path_id, segment_order, id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return err
		}
		i := byID[s.PathID]
		paths[i].Segments = append(paths[i].Segments, s)
	}
	return rows.Err()
}

func scanPath(row pgx.Row) (domain.Path, error) {
	var (
		p      domain.Path
		source string
	)
	if err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Description, &source,
		&p.Publishable, &p.Refined, &p.CreatedAt,
	); err != nil {
		return p, err
	}
	ds, err := domain.ParseDataSource(source)
	if err != nil {
		return p, fmt.Errorf("path %s: %w", p.ID, err)
	}
	p.DataSource = ds
	return p, nil
}

func collectPaths(rows pgx.Rows) ([]domain.Path, error) {
	defer rows.Close()

	var paths []domain.Path
	for rows.Next() {
		p, err := scanPath(rows)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
