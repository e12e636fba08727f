package http

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"
	kml "github.com/twpayne/go-kml"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

// PathKMLHandler exports a path as a KML document: one line placemark per
// segment and one point placemark per obstacle.
func PathKMLHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := deps.Paths.Get(c.UserContext(), c.Params("id"), callerID(c))
		if err != nil {
			return respondError(c, err)
		}

		var buf bytes.Buffer
		if err := pathKML(d).WriteIndent(&buf, "", "  "); err != nil {
			return respondError(c, fmt.Errorf("encode kml: %w", err))
		}

		c.Set(fiber.HeaderContentType, "application/vnd.google-earth.kml+xml")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="path-%s.kml"`, d.ID))
		return c.Send(buf.Bytes())
	}
}

func pathKML(d *domain.PathDetail) *kml.CompoundElement {
	name := d.Name
	if name == "" {
		name = d.ID
	}

	doc := []kml.Element{
		kml.Name(name),
		kml.Description(fmt.Sprintf("score %.2f, %.2f km", d.Score, d.TotalDistanceKm)),
	}
	for _, s := range d.Segments {
		coords := make([]kml.Coordinate, 0, len(s.Points()))
		for _, p := range s.Points() {
			coords = append(coords, kml.Coordinate{Lon: p.Lon, Lat: p.Lat})
		}
		label := s.StreetName
		if label == "" {
			label = fmt.Sprintf("segment %d", s.Order)
		}
		doc = append(doc, kml.Placemark(
			kml.Name(label),
			kml.Description(s.Status.String()),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		))
		for _, o := range s.Obstacles {
			doc = append(doc, kml.Placemark(
				kml.Name(o.Type.String()+" ("+o.Severity.String()+")"),
				kml.Description(o.Description),
				kml.Point(kml.Coordinates(kml.Coordinate{Lon: o.Location.Lon, Lat: o.Location.Lat})),
			))
		}
	}
	return kml.KML(kml.Document(doc...))
}
