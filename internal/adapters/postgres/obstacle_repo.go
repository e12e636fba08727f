package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

const obstacleColumns = `id, COALESCE(segment_id, ''), type, severity, lat, lon,
	description, reported_by, reported_at, confirmed`

const insertObstacleSQL = `
	INSERT INTO obstacles (id, segment_id, type, severity, lat, lon, description, reported_by, reported_at, confirmed)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10)
`

// ObstacleRepo implements ports.ObstacleRepository with pgx.
type ObstacleRepo struct {
	db *DB
}

// NewObstacleRepo creates a new ObstacleRepo.
func NewObstacleRepo(db *DB) *ObstacleRepo {
	return &ObstacleRepo{db: db}
}

// Create inserts a single obstacle.
func (r *ObstacleRepo) Create(ctx context.Context, o *domain.Obstacle) error {
	_, err := r.db.Pool.Exec(ctx, insertObstacleSQL, obstacleArgs(o)...)
	return err
}

// ListBySegments returns obstacles on any of the segments, oldest first.
func (r *ObstacleRepo) ListBySegments(ctx context.Context, segmentIDs []string) ([]domain.Obstacle, error) {
	if len(segmentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+obstacleColumns+`
		FROM obstacles
		WHERE segment_id = ANY($1)
		ORDER BY reported_at, id
	`, segmentIDs)
	if err != nil {
		return nil, err
	}
	return collectObstacles(rows)
}

// ListByPath returns obstacles on the path's segments, oldest first.
func (r *ObstacleRepo) ListByPath(ctx context.Context, pathID string) ([]domain.Obstacle, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT o.id, COALESCE(o.segment_id, ''), o.type, o.severity, o.lat, o.lon,
		       o.description, o.reported_by, o.reported_at, o.confirmed
		FROM obstacles o
		JOIN segments s ON s.id = o.segment_id
		WHERE s.path_id = $1
		ORDER BY o.reported_at, o.id
	`, pathID)
	if err != nil {
		return nil, err
	}
	return collectObstacles(rows)
}

func queueObstacle(batch *pgx.Batch, o *domain.Obstacle) {
	batch.Queue(insertObstacleSQL, obstacleArgs(o)...)
}

func obstacleArgs(o *domain.Obstacle) []any {
	return []any{
		o.ID, o.SegmentID, o.Type.String(), o.Severity.String(), o.Location.Lat, o.Location.Lon,
		o.Description, o.ReportedBy, o.ReportedAt, o.Confirmed,
	}
}

func collectObstacles(rows pgx.Rows) ([]domain.Obstacle, error) {
	defer rows.Close()

	var out []domain.Obstacle
	for rows.Next() {
		var (
			o              domain.Obstacle
			kind, severity string
		)
		if err := rows.Scan(
			&o.ID, &o.SegmentID, &kind, &severity, &o.Location.Lat, &o.Location.Lon,
			&o.Description, &o.ReportedBy, &o.ReportedAt, &o.Confirmed,
		); err != nil {
			return nil, err
		}
		t, err := domain.ParseObstacleType(kind)
		if err != nil {
			return nil, fmt.Errorf("obstacle %s: %w", o.ID, err)
		}
		sev, err := domain.ParseObstacleSeverity(severity)
		if err != nil {
			return nil, fmt.Errorf("obstacle %s: %w", o.ID, err)
		}
		o.Type, o.Severity = t, sev
		out = append(out, o)
	}
	return out, rows.Err()
}
