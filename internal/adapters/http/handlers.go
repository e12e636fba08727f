package http

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/usecases"
)

// CreatePathHandler stores a manually recorded path for the caller.
func CreatePathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.CreatePathInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}

		p, err := deps.Paths.Create(c.UserContext(), callerID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		c.Location("/v1/paths/" + p.ID)
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// ListPathsHandler returns the caller's own paths, paginated.
func ListPathsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := pageFromQuery(c, 20, 100)

		paths, total, err := deps.Paths.ListByOwner(c.UserContext(), callerID(c), p.Offset, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		if paths == nil {
			paths = []domain.Path{}
		}

		p.Total = total
		SetLinkHeaders(c, p)
		c.Set("Cache-Control", "private, no-cache")
		return c.JSON(PaginatedResponse{Data: paths, Pagination: p})
	}
}

// GetPathHandler returns a path with its obstacles, score and distance.
func GetPathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "path id is required")
		}
		d, err := deps.Paths.Get(c.UserContext(), id, callerID(c))
		if err != nil {
			return respondError(c, err)
		}
		if !d.Publishable {
			c.Set("Cache-Control", "private, no-cache")
		}
		return c.JSON(d)
	}
}

// ReportObstacleHandler records an obstacle on an existing segment.
func ReportObstacleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.ObstacleInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}

		o, err := deps.Obstacles.Report(c.UserContext(), callerID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(o)
	}
}

// routesResponse is the body of a route search.
type routesResponse struct {
	Routes []domain.RouteCandidate `json:"routes"`
}

// SearchRoutesHandler ranks stored paths connecting origin and destination.
func SearchRoutesHandler(deps *Dependencies) fiber.Handler {
	return searchRoutes(deps, searchParams{
		originLat: "origin_lat", originLon: "origin_lon",
		destLat: "dest_lat", destLon: "dest_lon",
	}, func(c *fiber.Ctx, routes []domain.RouteCandidate) error {
		return c.JSON(routesResponse{Routes: routes})
	})
}

// searchParams names the query parameters carrying the search coordinates.
type searchParams struct {
	originLat, originLon string
	destLat, destLon     string
}

func searchRoutes(deps *Dependencies, names searchParams, render func(*fiber.Ctx, []domain.RouteCandidate) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin, err := queryPoint(c, names.originLat, names.originLon)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		dest, err := queryPoint(c, names.destLat, names.destLon)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		routes, err := deps.Routes.Search(c.UserContext(), callerID(c), origin, dest)
		if err != nil {
			return respondError(c, err)
		}
		if callerID(c) != "" {
			c.Set("Cache-Control", "private, max-age=60")
		}
		return render(c, routes)
	}
}

// queryPoint reads a required coordinate pair from the query string.
// Zero is a valid coordinate, so absence is detected on the raw value.
func queryPoint(c *fiber.Ctx, latKey, lonKey string) (domain.GeoPoint, error) {
	lat, err := queryFloat(c, latKey)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	lon, err := queryFloat(c, lonKey)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

func queryFloat(c *fiber.Ctx, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, &domain.ValidationError{Field: key, Message: "is required"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &domain.ValidationError{Field: key, Message: "must be a number"}
	}
	return v, nil
}
