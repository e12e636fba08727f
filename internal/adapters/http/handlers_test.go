package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	handler "github.com/samirrijal/bikepaths/internal/adapters/http"
	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/usecases"
	"github.com/samirrijal/bikepaths/internal/pkg/auth"
)

// ---- Mock repositories ----

type mockPathRepo struct {
	createFn      func(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error
	getByIDFn     func(ctx context.Context, id string) (*domain.Path, error)
	listVisibleFn func(ctx context.Context, viewerID string) ([]domain.Path, error)
	listByOwnerFn func(ctx context.Context, ownerID string, offset, limit int) ([]domain.Path, int, error)
}

func (m *mockPathRepo) Create(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error {
	if m.createFn != nil {
		return m.createFn(ctx, p, obstacles)
	}
	return nil
}
func (m *mockPathRepo) GetByID(ctx context.Context, id string) (*domain.Path, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockPathRepo) ListVisible(ctx context.Context, viewerID string) ([]domain.Path, error) {
	if m.listVisibleFn != nil {
		return m.listVisibleFn(ctx, viewerID)
	}
	return nil, nil
}
func (m *mockPathRepo) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]domain.Path, int, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID, offset, limit)
	}
	return nil, 0, nil
}
func (m *mockPathRepo) ReplaceSegments(ctx context.Context, pathID string, segs []domain.Segment, reassign map[string]string) error {
	return nil
}

type mockSegmentRepo struct {
	getByIDFn      func(ctx context.Context, id string) (*domain.Segment, error)
	findInBoundsFn func(ctx context.Context, b domain.Bounds) ([]domain.Segment, error)
}

func (m *mockSegmentRepo) GetByID(ctx context.Context, id string) (*domain.Segment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockSegmentRepo) FindInBounds(ctx context.Context, b domain.Bounds) ([]domain.Segment, error) {
	if m.findInBoundsFn != nil {
		return m.findInBoundsFn(ctx, b)
	}
	return nil, nil
}

type mockObstacleRepo struct {
	createFn         func(ctx context.Context, o *domain.Obstacle) error
	listBySegmentsFn func(ctx context.Context, ids []string) ([]domain.Obstacle, error)
	listByPathFn     func(ctx context.Context, pathID string) ([]domain.Obstacle, error)
}

func (m *mockObstacleRepo) Create(ctx context.Context, o *domain.Obstacle) error {
	if m.createFn != nil {
		return m.createFn(ctx, o)
	}
	return nil
}
func (m *mockObstacleRepo) ListBySegments(ctx context.Context, ids []string) ([]domain.Obstacle, error) {
	if m.listBySegmentsFn != nil {
		return m.listBySegmentsFn(ctx, ids)
	}
	return nil, nil
}
func (m *mockObstacleRepo) ListByPath(ctx context.Context, pathID string) ([]domain.Obstacle, error) {
	if m.listByPathFn != nil {
		return m.listByPathFn(ctx, pathID)
	}
	return nil, nil
}

// ---- Fixtures ----

const testSecret = "handler-test-secret"

var (
	origin = domain.GeoPoint{Lat: 45.4642, Lon: 9.1900}
	middle = domain.GeoPoint{Lat: 45.4650, Lon: 9.1920}
	dest   = domain.GeoPoint{Lat: 45.4660, Lon: 9.1950}
)

func publicPath() domain.Path {
	return domain.Path{
		ID:          "p1",
		OwnerID:     "alice",
		Name:        "Navigli loop",
		DataSource:  domain.SourceManual,
		Publishable: true,
		CreatedAt:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		Segments: []domain.Segment{
			domain.NewSegment("s1", "p1", "Via Vigevano", domain.StatusMedium, 1, middle, dest, nil),
			domain.NewSegment("s0", "p1", "Corso Genova", domain.StatusOptimal, 0, origin, middle, nil),
		},
	}
}

func privatePath() domain.Path {
	p := publicPath()
	p.ID, p.OwnerID, p.Publishable = "p2", "bob", false
	return p
}

func pathRepoWith(paths ...domain.Path) *mockPathRepo {
	return &mockPathRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Path, error) {
			for i := range paths {
				if paths[i].ID == id {
					p := paths[i]
					return &p, nil
				}
			}
			return nil, domain.ErrNotFound
		},
		listVisibleFn: func(ctx context.Context, viewerID string) ([]domain.Path, error) {
			var out []domain.Path
			for _, p := range paths {
				if p.VisibleTo(viewerID) {
					out = append(out, p)
				}
			}
			return out, nil
		},
	}
}

type repos struct {
	paths     *mockPathRepo
	segments  *mockSegmentRepo
	obstacles *mockObstacleRepo
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*repos)) *handler.Dependencies {
	r := &repos{
		paths:     pathRepoWith(publicPath(), privatePath()),
		segments:  &mockSegmentRepo{},
		obstacles: &mockObstacleRepo{},
	}
	for _, o := range opts {
		o(r)
	}
	verifier, err := auth.NewVerifier(testSecret, "HS256")
	if err != nil {
		panic(err)
	}
	return &handler.Dependencies{
		Paths: usecases.NewPathService(r.paths, r.segments, r.obstacles, nil, nil, nil,
			usecases.PathServiceConfig{}),
		Obstacles: usecases.NewObstacleService(r.obstacles, r.segments, nil, nil, 50),
		Routes: usecases.NewRouteSearchService(r.paths, r.obstacles, nil,
			usecases.RouteSearchConfig{ToleranceMeters: 100}),
		Auth: verifier,
	}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	v, err := auth.NewVerifier(testSecret, "HS256")
	if err != nil {
		t.Fatal(err)
	}
	tok, err := v.Sign(userID, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeError(t *testing.T, body io.Reader) handler.APIError {
	t.Helper()
	var e handler.APIError
	if err := json.NewDecoder(body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

const createBody = `{
	"name": "Commute",
	"publishable": true,
	"segments": [
		{"street_name": "Corso Genova", "status": "OPTIMAL", "order": 0,
		 "start": {"lat": 45.4642, "lon": 9.19}, "end": {"lat": 45.465, "lon": 9.192}}
	],
	"obstacles": [
		{"type": "POTHOLE", "severity": "MINOR", "location": {"lat": 45.4646, "lon": 9.191}}
	]
}`

// ---- Path handler tests ----

func TestCreatePath_RequiresToken(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/paths", strings.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if e := decodeError(t, resp.Body); e.Code != "unauthorized" {
		t.Errorf("expected code unauthorized, got %q", e.Code)
	}
}

func TestCreatePath_Success(t *testing.T) {
	var stored *domain.Path
	var storedObstacles []domain.Obstacle
	deps := makeDeps(func(r *repos) {
		r.paths.createFn = func(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error {
			stored, storedObstacles = p, obstacles
			return nil
		}
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/paths", strings.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "alice"))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var got domain.Path
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if stored == nil || got.ID != stored.ID {
		t.Fatalf("response does not match stored path: %+v", got)
	}
	if got.OwnerID != "alice" || got.DataSource != domain.SourceManual {
		t.Errorf("unexpected owner or source: %+v", got)
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/paths/"+got.ID {
		t.Errorf("unexpected Location %q", loc)
	}
	if len(storedObstacles) != 1 || storedObstacles[0].SegmentID != got.Segments[0].ID {
		t.Errorf("obstacle not attached to nearest segment: %+v", storedObstacles)
	}
}

func TestCreatePath_Rejections(t *testing.T) {
	tests := map[string]struct {
		body string
		want string
	}{
		"malformed json":  {body: `{"segments": [`, want: "invalid request body"},
		"no segments":     {body: `{"publishable": true, "segments": []}`, want: "segments"},
		"unknown status":  {body: `{"segments": [{"status": "PERFECT", "start": {"lat": 1, "lon": 1}, "end": {"lat": 1, "lon": 1}}]}`, want: "invalid request body"},
		"latitude bounds": {body: `{"segments": [{"status": "MEDIUM", "start": {"lat": 91, "lon": 1}, "end": {"lat": 1, "lon": 1}}]}`, want: "segments[0].start"},
		"obstacle too far": {
			body: `{"segments": [{"status": "MEDIUM", "start": {"lat": 45.4642, "lon": 9.19}, "end": {"lat": 45.465, "lon": 9.192}}],
				"obstacles": [{"type": "DEBRIS", "severity": "SEVERE", "location": {"lat": 45.5, "lon": 9.3}}]}`,
			want: "no segment within range",
		},
	}

	app := setupApp(makeDeps())
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/paths", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", bearer(t, "alice"))
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			e := decodeError(t, resp.Body)
			if e.Code != "bad_request" || !strings.Contains(e.Message, tt.want) {
				t.Errorf("expected bad_request mentioning %q, got %+v", tt.want, e)
			}
		})
	}
}

func TestGetPath_Visibility(t *testing.T) {
	app := setupApp(makeDeps())

	tests := []struct {
		name   string
		path   string
		user   string
		status int
	}{
		{"public anonymous", "/v1/paths/p1", "", 200},
		{"private anonymous", "/v1/paths/p2", "", 404},
		{"private other user", "/v1/paths/p2", "alice", 404},
		{"private owner", "/v1/paths/p2", "bob", 200},
		{"missing", "/v1/paths/nope", "", 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.user != "" {
				req.Header.Set("Authorization", bearer(t, tt.user))
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestGetPath_DetailIsScoredAndOrdered(t *testing.T) {
	deps := makeDeps(func(r *repos) {
		r.obstacles.listByPathFn = func(ctx context.Context, pathID string) ([]domain.Obstacle, error) {
			return []domain.Obstacle{{ID: "o1", SegmentID: "s1", Type: domain.ObstacleDebris,
				Severity: domain.SeverityModerate, Location: dest}}, nil
		}
	})
	app := setupApp(deps)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/paths/p1", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var d domain.PathDetail
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatal(err)
	}
	if len(d.Segments) != 2 || d.Segments[0].ID != "s0" || d.Segments[1].ID != "s1" {
		t.Fatalf("segments not ordered: %+v", d.Segments)
	}
	if len(d.Segments[1].Obstacles) != 1 {
		t.Errorf("expected obstacle on s1, got %+v", d.Segments[1].Obstacles)
	}
	if d.Score < 150 {
		t.Errorf("expected score to include the moderate penalty, got %v", d.Score)
	}
	if d.TotalDistanceKm <= 0 {
		t.Errorf("expected positive distance, got %v", d.TotalDistanceKm)
	}
}

func TestGetPath_InternalErrorIsOpaque(t *testing.T) {
	deps := makeDeps(func(r *repos) {
		r.paths.getByIDFn = func(ctx context.Context, id string) (*domain.Path, error) {
			return nil, errors.New("connection reset by peer")
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/paths/p1", nil), -1)
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	e := decodeError(t, resp.Body)
	if strings.Contains(e.Message, "connection reset") {
		t.Errorf("internal detail leaked: %q", e.Message)
	}
	if e.RequestID == "" {
		t.Error("expected request id on error")
	}
}

func TestListPaths_PaginationAndLinks(t *testing.T) {
	var gotOwner string
	var gotOffset, gotLimit int
	deps := makeDeps(func(r *repos) {
		r.paths.listByOwnerFn = func(ctx context.Context, ownerID string, offset, limit int) ([]domain.Path, int, error) {
			gotOwner, gotOffset, gotLimit = ownerID, offset, limit
			return []domain.Path{publicPath()}, 7, nil
		}
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/paths?offset=2&limit=3", nil)
	req.Header.Set("Authorization", bearer(t, "alice"))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotOwner != "alice" || gotOffset != 2 || gotLimit != 3 {
		t.Errorf("unexpected repo call: owner=%s offset=%d limit=%d", gotOwner, gotOffset, gotLimit)
	}

	var result struct {
		Data       []domain.Path      `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 7 || len(result.Data) != 1 {
		t.Errorf("unexpected page: %+v", result.Pagination)
	}

	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("expected %s in Link header, got %s", rel, link)
		}
	}
}

// ---- Obstacle handler tests ----

func TestReportObstacle(t *testing.T) {
	seg := domain.NewSegment("s0", "p1", "Corso Genova", domain.StatusOptimal, 0, origin, middle, nil)
	var created *domain.Obstacle
	deps := makeDeps(func(r *repos) {
		r.segments.getByIDFn = func(ctx context.Context, id string) (*domain.Segment, error) {
			if id == "s0" {
				return &seg, nil
			}
			return nil, domain.ErrNotFound
		}
		r.obstacles.createFn = func(ctx context.Context, o *domain.Obstacle) error {
			created = o
			return nil
		}
	})
	app := setupApp(deps)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/v1/obstacles", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer(t, "carol"))
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		rec := httptest.NewRecorder()
		rec.Code = resp.StatusCode
		_, _ = rec.Body.Write(readBody(t, resp.Body))
		return rec
	}

	rec := post(`{"segment_id": "s0", "type": "CONSTRUCTION", "severity": "SEVERE", "location": {"lat": 45.4645, "lon": 9.1905}}`)
	if rec.Code != 201 {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if created == nil || created.ReportedBy != "carol" || created.Severity != domain.SeveritySevere {
		t.Errorf("unexpected stored obstacle: %+v", created)
	}

	rec = post(`{"segment_id": "missing", "type": "OTHER", "severity": "MINOR", "location": {"lat": 45.4645, "lon": 9.1905}}`)
	if rec.Code != 400 || !strings.Contains(rec.Body.String(), "segment not found") {
		t.Errorf("expected 400 segment not found, got %d: %s", rec.Code, rec.Body.String())
	}
}

// ---- Route search tests ----

func searchURL(base string, o, d domain.GeoPoint) string {
	return fmt.Sprintf("%s?origin_lat=%v&origin_lon=%v&dest_lat=%v&dest_lon=%v", base, o.Lat, o.Lon, d.Lat, d.Lon)
}

func TestSearchRoutes_Success(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", searchURL("/v1/routes/search", origin, dest), nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Routes []domain.RouteCandidate `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Routes) != 1 || result.Routes[0].PathID != "p1" {
		t.Fatalf("expected only the public path, got %+v", result.Routes)
	}
	if segs := result.Routes[0].Segments; len(segs) != 2 || segs[0].Order != 0 {
		t.Errorf("segments not ordered: %+v", segs)
	}
}

func TestSearchRoutes_OwnerSeesPrivatePath(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", searchURL("/v1/routes/search", origin, dest), nil)
	req.Header.Set("Authorization", bearer(t, "bob"))
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Routes []domain.RouteCandidate `json:"routes"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Routes) != 2 {
		t.Errorf("expected public and own private path, got %d", len(result.Routes))
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.HasPrefix(cc, "private") {
		t.Errorf("authenticated search must not be publicly cacheable, got %q", cc)
	}
}

func TestSearchRoutes_Errors(t *testing.T) {
	app := setupApp(makeDeps())

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"missing params", "/v1/routes/search?origin_lat=45.4", 400},
		{"not a number", "/v1/routes/search?origin_lat=abc&origin_lon=9&dest_lat=45&dest_lon=9", 400},
		{"out of range", searchURL("/v1/routes/search", domain.GeoPoint{Lat: 95, Lon: 9}, dest), 400},
		{"no route", searchURL("/v1/routes/search", dest, origin), 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.url, nil), -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestSearchRoutes_BadToken(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", searchURL("/v1/routes/search", origin, dest), nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 for a bad token, got %d", resp.StatusCode)
	}
}

// ---- Legacy endpoints ----

func TestLegacySearch_DeprecatedCamelCase(t *testing.T) {
	app := setupApp(makeDeps())

	for _, base := range []string{"/paths/search", "/routes/search"} {
		url := fmt.Sprintf("%s?originLat=%v&originLon=%v&destLat=%v&destLon=%v", base, origin.Lat, origin.Lon, dest.Lat, dest.Lon)
		resp, err := app.Test(httptest.NewRequest("GET", url, nil), -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("%s: expected 200, got %d", base, resp.StatusCode)
		}
		if resp.Header.Get("Deprecation") != "true" {
			t.Errorf("%s: expected Deprecation header", base)
		}
		if !strings.Contains(resp.Header.Get("Link"), "/v1/routes/search") {
			t.Errorf("%s: expected successor link, got %q", base, resp.Header.Get("Link"))
		}

		body := string(readBody(t, resp.Body))
		for _, key := range []string{`"routeId":"p1"`, `"totalDistance"`, `"startLatitude"`, `"status":"OPTIMAL"`} {
			if !strings.Contains(body, key) {
				t.Errorf("%s: expected %s in %s", base, key, body)
			}
		}
	}
}

func TestLegacyCreatePath(t *testing.T) {
	var stored *domain.Path
	deps := makeDeps(func(r *repos) {
		r.paths.createFn = func(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error {
			stored = p
			return nil
		}
	})
	app := setupApp(deps)

	body := `{"name": "Old client", "publishable": false, "segments": [
		{"streetName": "Via Tortona", "status": "SUFFICIENT", "order": 0,
		 "startLatitude": 45.452, "startLongitude": 9.165, "endLatitude": 45.453, "endLongitude": 9.168}]}`
	req := httptest.NewRequest("POST", "/paths/manual", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "dave"))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var got map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&got)
	if stored == nil || got["pathInfoId"] != stored.ID {
		t.Fatalf("unexpected response %v", got)
	}
	s := stored.Segments[0]
	if s.StreetName != "Via Tortona" || s.Status != domain.StatusSufficient || s.Start.Lat != 45.452 || s.End.Lon != 9.168 {
		t.Errorf("legacy segment not converted: %+v", s)
	}
}

// ---- KML export ----

func TestPathKML(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/paths/p1/kml", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/vnd.google-earth.kml+xml") {
		t.Errorf("unexpected content type %q", ct)
	}

	body := string(readBody(t, resp.Body))
	if strings.Count(body, "<LineString>") != 2 {
		t.Errorf("expected one LineString per segment:\n%s", body)
	}
	if !strings.Contains(body, "Navigli loop") || !strings.Contains(body, "9.19,45.4642") {
		t.Errorf("expected name and lon,lat coordinates:\n%s", body)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/paths/p2/kml", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("private path export: expected 404, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_SearchRoutesAndPath(t *testing.T) {
	app := setupApp(makeDeps())

	query := fmt.Sprintf(`{
		searchRoutes(origin_lat: %v, origin_lon: %v, dest_lat: %v, dest_lon: %v) { route_id segments { id status } }
		path(id: "p2") { id }
	}`, origin.Lat, origin.Lon, dest.Lat, dest.Lon)
	payload, _ := json.Marshal(map[string]string{"query": query})

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}

	var result struct {
		Data struct {
			SearchRoutes []struct {
				RouteID  string `json:"route_id"`
				Segments []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"segments"`
			} `json:"searchRoutes"`
			Path *struct {
				ID string `json:"id"`
			} `json:"path"`
		} `json:"data"`
		Errors []json.RawMessage `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected graphql errors: %s", result.Errors)
	}
	routes := result.Data.SearchRoutes
	if len(routes) != 1 || routes[0].RouteID != "p1" || routes[0].Segments[0].Status != "OPTIMAL" {
		t.Errorf("unexpected routes: %+v", routes)
	}
	if result.Data.Path != nil {
		t.Errorf("private path must resolve to null for anonymous callers")
	}
}

// ---- System endpoints and middleware ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

func TestReady_NoDatabase(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503 without a database, got %d", resp.StatusCode)
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/paths/p1", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/paths/p1", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// TestAccessLogMiddleware verifies structured access logging does not disturb responses.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp.Body); !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", body)
	}
}

func TestRequestIDLogMiddleware(t *testing.T) {
	var gotID string
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-42")
		return c.Next()
	})
	app.Use(handler.RequestIDLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		gotID = handler.RequestIDFromCtx(c.UserContext())
		handler.LoggerFromCtx(c.UserContext()).Info("inside handler")
		return c.SendStatus(fiber.StatusNoContent)
	})

	if _, err := app.Test(httptest.NewRequest("GET", "/test", nil)); err != nil {
		t.Fatal(err)
	}
	if gotID != "req-42" {
		t.Errorf("expected request id in context, got %q", gotID)
	}
}
