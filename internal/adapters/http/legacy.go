package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/usecases"
)

// Legacy request and response shapes. They use flat camelCase coordinates
// and are kept only for clients that predate /v1.

type legacySegment struct {
	StreetName     string               `json:"streetName"`
	Status         domain.SegmentStatus `json:"status"`
	StartLatitude  float64              `json:"startLatitude"`
	StartLongitude float64              `json:"startLongitude"`
	EndLatitude    float64              `json:"endLatitude"`
	EndLongitude   float64              `json:"endLongitude"`
	Order          int                  `json:"order"`
}

type legacyObstacle struct {
	SegmentID   string                  `json:"segmentId"`
	Type        domain.ObstacleType     `json:"type"`
	Severity    domain.ObstacleSeverity `json:"severity"`
	Latitude    float64                 `json:"latitude"`
	Longitude   float64                 `json:"longitude"`
	Description string                  `json:"description"`
}

func (o legacyObstacle) input() usecases.ObstacleInput {
	return usecases.ObstacleInput{
		SegmentID:   o.SegmentID,
		Type:        o.Type,
		Severity:    o.Severity,
		Location:    domain.GeoPoint{Lat: o.Latitude, Lon: o.Longitude},
		Description: o.Description,
	}
}

type legacyPathCreate struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Publishable bool             `json:"publishable"`
	Segments    []legacySegment  `json:"segments"`
	Obstacles   []legacyObstacle `json:"obstacles"`
}

func (r legacyPathCreate) input() usecases.CreatePathInput {
	in := usecases.CreatePathInput{
		Name:        r.Name,
		Description: r.Description,
		Publishable: r.Publishable,
		Segments:    make([]usecases.SegmentInput, len(r.Segments)),
		Obstacles:   make([]usecases.ObstacleInput, len(r.Obstacles)),
	}
	for i, s := range r.Segments {
		in.Segments[i] = usecases.SegmentInput{
			StreetName: s.StreetName,
			Status:     s.Status,
			Start:      domain.GeoPoint{Lat: s.StartLatitude, Lon: s.StartLongitude},
			End:        domain.GeoPoint{Lat: s.EndLatitude, Lon: s.EndLongitude},
			Order:      s.Order,
		}
	}
	for i, o := range r.Obstacles {
		in.Obstacles[i] = o.input()
	}
	return in
}

type legacyObstacleView struct {
	ObstacleID  string  `json:"obstacleId"`
	Type        string  `json:"type"`
	Severity    string  `json:"severity"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description *string `json:"description"`
}

type legacySegmentView struct {
	SegmentID      string               `json:"segmentId"`
	StreetName     *string              `json:"streetName"`
	Status         string               `json:"status"`
	StartLatitude  float64              `json:"startLatitude"`
	StartLongitude float64              `json:"startLongitude"`
	EndLatitude    float64              `json:"endLatitude"`
	EndLongitude   float64              `json:"endLongitude"`
	Obstacles      []legacyObstacleView `json:"obstacles"`
}

type legacyRouteView struct {
	RouteID       string              `json:"routeId"`
	Score         float64             `json:"score"`
	TotalDistance float64             `json:"totalDistance"`
	Segments      []legacySegmentView `json:"segments"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func legacySegments(segs []domain.RouteSegment) []legacySegmentView {
	out := make([]legacySegmentView, len(segs))
	for i, s := range segs {
		v := legacySegmentView{
			SegmentID:      s.ID,
			StreetName:     optional(s.StreetName),
			Status:         s.Status.String(),
			StartLatitude:  s.Start.Lat,
			StartLongitude: s.Start.Lon,
			EndLatitude:    s.End.Lat,
			EndLongitude:   s.End.Lon,
			Obstacles:      make([]legacyObstacleView, len(s.Obstacles)),
		}
		for j, o := range s.Obstacles {
			v.Obstacles[j] = legacyObstacleView{
				ObstacleID:  o.ID,
				Type:        o.Type.String(),
				Severity:    o.Severity.String(),
				Latitude:    o.Location.Lat,
				Longitude:   o.Location.Lon,
				Description: optional(o.Description),
			}
		}
		out[i] = v
	}
	return out
}

// LegacyCreatePathHandler serves POST /paths/manual.
func LegacyCreatePathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req legacyPathCreate
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		p, err := deps.Paths.Create(c.UserContext(), callerID(c), req.input())
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"pathInfoId": p.ID,
			"message":    "Path information saved successfully",
		})
	}
}

// LegacyReportObstacleHandler serves POST /paths/obstacles.
func LegacyReportObstacleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req legacyObstacle
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		o, err := deps.Obstacles.Report(c.UserContext(), callerID(c), req.input())
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"obstacleId": o.ID,
			"message":    "Obstacle added successfully",
		})
	}
}

// LegacySearchRoutesHandler serves GET /paths/search and /routes/search.
func LegacySearchRoutesHandler(deps *Dependencies) fiber.Handler {
	return searchRoutes(deps, searchParams{
		originLat: "originLat", originLon: "originLon",
		destLat: "destLat", destLon: "destLon",
	}, func(c *fiber.Ctx, routes []domain.RouteCandidate) error {
		views := make([]legacyRouteView, len(routes))
		for i, r := range routes {
			views[i] = legacyRouteView{
				RouteID:       r.PathID,
				Score:         r.Score,
				TotalDistance: r.TotalDistanceKm,
				Segments:      legacySegments(r.Segments),
			}
		}
		return c.JSON(fiber.Map{"routes": views})
	})
}

// LegacyGetPathHandler serves GET /paths/:id.
func LegacyGetPathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := deps.Paths.Get(c.UserContext(), c.Params("id"), callerID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"pathInfoId":    d.ID,
			"name":          optional(d.Name),
			"description":   optional(d.Description),
			"dataSource":    d.DataSource.String(),
			"createdDate":   d.CreatedAt,
			"totalDistance": d.TotalDistanceKm,
			"score":         d.Score,
			"segments":      legacySegments(d.Segments),
		})
	}
}
