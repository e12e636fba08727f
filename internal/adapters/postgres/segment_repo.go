package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/pkg/geospatial"
)

const segmentColumns = `id, path_id, street_name, status, segment_order,
	start_lat, start_lon, end_lat, end_lon, length_meters, geometry`

// SegmentRepo implements ports.SegmentRepository with pgx.
type SegmentRepo struct {
	db *DB
}

// NewSegmentRepo creates a new SegmentRepo.
func NewSegmentRepo(db *DB) *SegmentRepo {
	return &SegmentRepo{db: db}
}

// GetByID returns a segment by ID, or domain.ErrNotFound.
func (r *SegmentRepo) GetByID(ctx context.Context, id string) (*domain.Segment, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+segmentColumns+` FROM segments WHERE id = $1`, id)
	s, err := scanSegment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindInBounds returns segments whose bounding box intersects b.
func (r *SegmentRepo) FindInBounds(ctx context.Context, b domain.Bounds) ([]domain.Segment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+segmentColumns+`
		FROM segments
		WHERE max_lat >= $1 AND min_lat <= $2
		  AND max_lon >= $3 AND min_lon <= $4
		ORDER BY path_id, segment_order, id
	`, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segs []domain.Segment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segs = append(segs, s)
	}
	return segs, rows.Err()
}

// scanSegment reads one row selected with segmentColumns. The stored length
// is kept as-is.
func scanSegment(row pgx.Row) (domain.Segment, error) {
	var (
		s        domain.Segment
		status   string
		geometry string
	)
	if err := row.Scan(
		&s.ID, &s.PathID, &s.StreetName, &status, &s.Order,
		&s.Start.Lat, &s.Start.Lon, &s.End.Lat, &s.End.Lon,
		&s.LengthMeters, &geometry,
	); err != nil {
		return s, err
	}

	st, err := domain.ParseSegmentStatus(status)
	if err != nil {
		return s, fmt.Errorf("segment %s: %w", s.ID, err)
	}
	s.Status = st

	if geometry != "" {
		pts, err := geospatial.DecodePolyline(geometry)
		if err != nil {
			return s, fmt.Errorf("segment %s geometry: %w", s.ID, err)
		}
		s.Geometry = make([]domain.GeoPoint, len(pts))
		for i, p := range pts {
			s.Geometry[i] = domain.GeoPoint{Lat: p[0], Lon: p[1]}
		}
	}
	return s, nil
}

// segmentRow is the column set written for one segment.
type segmentRow struct {
	geometry                       string
	minLat, minLon, maxLat, maxLon float64
}

func newSegmentRow(s domain.Segment) segmentRow {
	pts := s.Points()
	row := segmentRow{
		minLat: math.Inf(1), minLon: math.Inf(1),
		maxLat: math.Inf(-1), maxLon: math.Inf(-1),
	}
	pairs := make([][2]float64, len(pts))
	for i, p := range pts {
		pairs[i] = p.Pair()
		row.minLat = math.Min(row.minLat, p.Lat)
		row.maxLat = math.Max(row.maxLat, p.Lat)
		row.minLon = math.Min(row.minLon, p.Lon)
		row.maxLon = math.Max(row.maxLon, p.Lon)
	}
	if len(s.Geometry) >= 2 {
		row.geometry = geospatial.EncodePolyline(pairs)
	}
	return row
}

const upsertSegmentSQL = `
	INSERT INTO segments (id, path_id, street_name, status, segment_order,
		start_lat, start_lon, end_lat, end_lon, length_meters, geometry,
		min_lat, min_lon, max_lat, max_lon)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (id) DO UPDATE
	SET street_name = EXCLUDED.street_name, status = EXCLUDED.status,
	    segment_order = EXCLUDED.segment_order,
	    start_lat = EXCLUDED.start_lat, start_lon = EXCLUDED.start_lon,
	    end_lat = EXCLUDED.end_lat, end_lon = EXCLUDED.end_lon,
	    length_meters = EXCLUDED.length_meters, geometry = EXCLUDED.geometry,
	    min_lat = EXCLUDED.min_lat, min_lon = EXCLUDED.min_lon,
	    max_lat = EXCLUDED.max_lat, max_lon = EXCLUDED.max_lon
`

func queueSegment(batch *pgx.Batch, pathID string, s domain.Segment) {
	row := newSegmentRow(s)
	batch.Queue(upsertSegmentSQL,
		s.ID, pathID, s.StreetName, s.Status.String(), s.Order,
		s.Start.Lat, s.Start.Lon, s.End.Lat, s.End.Lon, s.LengthMeters, row.geometry,
		row.minLat, row.minLon, row.maxLat, row.maxLon)
}
