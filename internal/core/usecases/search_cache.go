package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/ports"
)

// Route search entries are keyed under a generation token. Any write that can
// change a search result replaces the token, so older entries are never read
// again and simply expire.
const (
	searchGenerationKey = "routes:search:gen"
	searchGenerationTTL = 24 * 60 * 60
)

func searchGeneration(ctx context.Context, cache ports.CacheService) string {
	data, err := cache.Get(ctx, searchGenerationKey)
	if err != nil || len(data) == 0 {
		return "0"
	}
	return string(data)
}

func bumpSearchGeneration(ctx context.Context, cache ports.CacheService, gen string) {
	if err := cache.Set(ctx, searchGenerationKey, []byte(gen), searchGenerationTTL); err != nil {
		slog.Warn("invalidate route search cache", "error", err)
	}
}

func searchCacheKey(gen, viewerID string, origin, destination domain.GeoPoint) string {
	return fmt.Sprintf("routes:search:%s:%s:%.6f:%.6f:%.6f:%.6f",
		gen, viewerID, origin.Lat, origin.Lon, destination.Lat, destination.Lon)
}
