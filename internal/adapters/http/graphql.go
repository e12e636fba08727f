package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

type viewerCtxKey struct{}

func viewerFrom(ctx context.Context) string {
	id, _ := ctx.Value(viewerCtxKey{}).(string)
	return id
}

// toGraph converts a domain value into the JSON-shaped maps the default
// resolvers read, so embedded structs and enum names come out as in REST.
func toGraph(v any) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func enumType(name string, values []string) *graphql.Enum {
	cfg := graphql.EnumValueConfigMap{}
	for _, v := range values {
		cfg[v] = &graphql.EnumValueConfig{Value: v}
	}
	return graphql.NewEnum(graphql.EnumConfig{Name: name, Values: cfg})
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	var statuses, kinds, severities []string
	for _, s := range domain.SegmentStatuses {
		statuses = append(statuses, s.String())
	}
	for _, t := range domain.ObstacleTypes {
		kinds = append(kinds, t.String())
	}
	for _, s := range domain.ObstacleSeverities {
		severities = append(severities, s.String())
	}

	obstacleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Obstacle",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"segment_id":  &graphql.Field{Type: graphql.String},
			"type":        &graphql.Field{Type: enumType("ObstacleType", kinds)},
			"severity":    &graphql.Field{Type: enumType("ObstacleSeverity", severities)},
			"location":    &graphql.Field{Type: geoPointType},
			"description": &graphql.Field{Type: graphql.String},
			"reported_at": &graphql.Field{Type: graphql.String},
			"confirmed":   &graphql.Field{Type: graphql.Boolean},
		},
	})

	segmentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Segment",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"path_id":       &graphql.Field{Type: graphql.String},
			"street_name":   &graphql.Field{Type: graphql.String},
			"status":        &graphql.Field{Type: enumType("SegmentStatus", statuses)},
			"order":         &graphql.Field{Type: graphql.Int},
			"start":         &graphql.Field{Type: geoPointType},
			"end":           &graphql.Field{Type: geoPointType},
			"length_meters": &graphql.Field{Type: graphql.Float},
			"geometry":      &graphql.Field{Type: graphql.NewList(geoPointType)},
			"obstacles":     &graphql.Field{Type: graphql.NewList(obstacleType)},
		},
	})

	pathType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Path",
		Fields: graphql.Fields{
			"id":                &graphql.Field{Type: graphql.String},
			"owner_id":          &graphql.Field{Type: graphql.String},
			"name":              &graphql.Field{Type: graphql.String},
			"description":       &graphql.Field{Type: graphql.String},
			"data_source":       &graphql.Field{Type: graphql.String},
			"publishable":       &graphql.Field{Type: graphql.Boolean},
			"refined":           &graphql.Field{Type: graphql.Boolean},
			"created_at":        &graphql.Field{Type: graphql.String},
			"score":             &graphql.Field{Type: graphql.Float},
			"total_distance_km": &graphql.Field{Type: graphql.Float},
			"segments":          &graphql.Field{Type: graphql.NewList(segmentType)},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteCandidate",
		Fields: graphql.Fields{
			"route_id":          &graphql.Field{Type: graphql.String},
			"name":              &graphql.Field{Type: graphql.String},
			"score":             &graphql.Field{Type: graphql.Float},
			"total_distance_km": &graphql.Field{Type: graphql.Float},
			"segments":          &graphql.Field{Type: graphql.NewList(segmentType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"path": &graphql.Field{
				Type:        pathType,
				Description: "A path with obstacles and score; null when missing or private",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					d, err := deps.Paths.Get(p.Context, id, viewerFrom(p.Context))
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return toGraph(d)
				},
			},
			"myPaths": &graphql.Field{
				Type:        graphql.NewList(pathType),
				Description: "Paths owned by the authenticated caller",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					paths, _, err := deps.Paths.ListByOwner(p.Context, viewerFrom(p.Context), offset, limit)
					if err != nil {
						return nil, err
					}
					return toGraph(paths)
				},
			},
			"searchRoutes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "Up to three stored paths connecting origin and destination, best first",
				Args: graphql.FieldConfigArgument{
					"origin_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"origin_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"dest_lat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"dest_lon":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin := domain.GeoPoint{Lat: p.Args["origin_lat"].(float64), Lon: p.Args["origin_lon"].(float64)}
					dest := domain.GeoPoint{Lat: p.Args["dest_lat"].(float64), Lon: p.Args["dest_lon"].(float64)}
					routes, err := deps.Routes.Search(p.Context, viewerFrom(p.Context), origin, dest)
					if errors.Is(err, domain.ErrNoRouteFound) {
						return []interface{}{}, nil
					}
					if err != nil {
						return nil, err
					}
					return toGraph(routes)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        context.WithValue(c.UserContext(), viewerCtxKey{}, callerID(c)),
		})

		return c.JSON(result)
	}
}
