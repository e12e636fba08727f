package domain

import (
	"sort"
	"time"

	"github.com/samirrijal/bikepaths/internal/pkg/geospatial"
)

// Segment is one stretch of a bike path between two coordinates.
// LengthMeters is derived once, at construction, and never recomputed.
type Segment struct {
	ID           string        `json:"id"`
	PathID       string        `json:"path_id"`
	StreetName   string        `json:"street_name,omitempty"`
	Status       SegmentStatus `json:"status"`
	Start        GeoPoint      `json:"start"`
	End          GeoPoint      `json:"end"`
	Order        int           `json:"order"`
	LengthMeters float64       `json:"length_meters"`
	Geometry     []GeoPoint    `json:"geometry,omitempty"`
}

// NewSegment builds a segment and derives its length. With a geometry of two
// or more points, start and end are taken from the geometry and the length is
// the polyline length; otherwise the length is the start-end distance.
func NewSegment(id, pathID, streetName string, status SegmentStatus, order int, start, end GeoPoint, geometry []GeoPoint) Segment {
	s := Segment{
		ID:         id,
		PathID:     pathID,
		StreetName: streetName,
		Status:     status,
		Start:      start,
		End:        end,
		Order:      order,
	}
	if len(geometry) >= 2 {
		s.Geometry = append([]GeoPoint(nil), geometry...)
		s.Start = geometry[0]
		s.End = geometry[len(geometry)-1]
		s.LengthMeters = geospatial.PolylineLength(pairs(geometry))
		return s
	}
	s.LengthMeters = geospatial.Haversine(start.Lat, start.Lon, end.Lat, end.Lon)
	return s
}

// Points returns the segment's full geometry when present, else its endpoints.
func (s Segment) Points() []GeoPoint {
	if len(s.Geometry) >= 2 {
		return s.Geometry
	}
	return []GeoPoint{s.Start, s.End}
}

// Obstacle is a reported impediment on a path. SegmentID is empty when the
// obstacle is not attached to any segment.
type Obstacle struct {
	ID          string           `json:"id"`
	SegmentID   string           `json:"segment_id,omitempty"`
	Type        ObstacleType     `json:"type"`
	Severity    ObstacleSeverity `json:"severity"`
	Location    GeoPoint         `json:"location"`
	Description string           `json:"description,omitempty"`
	ReportedBy  string           `json:"reported_by,omitempty"`
	ReportedAt  time.Time        `json:"reported_at"`
	Confirmed   bool             `json:"confirmed"`
}

// Path is a named collection of segments owned by a user.
type Path struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	DataSource  DataSource `json:"data_source"`
	Publishable bool       `json:"publishable"`
	Refined     bool       `json:"refined"`
	CreatedAt   time.Time  `json:"created_at"`
	Segments    []Segment  `json:"segments"`
}

// VisibleTo reports whether viewerID may read the path. An empty viewerID is anonymous.
func (p *Path) VisibleTo(viewerID string) bool {
	return p.Publishable || (viewerID != "" && p.OwnerID == viewerID)
}

// OrderedSegments returns a copy of the segments stably sorted by Order.
func (p *Path) OrderedSegments() []Segment {
	return SortSegments(p.Segments)
}

// SortSegments returns a copy of segs stably sorted by Order.
func SortSegments(segs []Segment) []Segment {
	out := append([]Segment(nil), segs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// RouteSegment is a segment in a search result, with its obstacles attached.
type RouteSegment struct {
	Segment
	Obstacles []Obstacle `json:"obstacles"`
}

// RouteCandidate is one ranked answer to a route search. Lower scores are better.
type RouteCandidate struct {
	PathID          string         `json:"route_id"`
	Name            string         `json:"name,omitempty"`
	Score           float64        `json:"score"`
	TotalDistanceKm float64        `json:"total_distance_km"`
	Segments        []RouteSegment `json:"segments"`
}

// PathDetail is a path with obstacles attached to its segments and a derived
// score. Its Segments field shadows Path.Segments.
type PathDetail struct {
	Path
	Segments        []RouteSegment `json:"segments"`
	Score           float64        `json:"score"`
	TotalDistanceKm float64        `json:"total_distance_km"`
}

// SnappedPoint is one point returned by a road snapping service.
// OriginalIndex is -1 for interpolated points.
type SnappedPoint struct {
	Location      GeoPoint `json:"location"`
	OriginalIndex int      `json:"original_index"`
}
