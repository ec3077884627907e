package routes

import (
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/render-hub/internal/compiler"
	"github.com/any-hub/render-hub/internal/server"
)

// RegisterDiagnosticsRoutes 暴露 /-/sites、/-/compilers 与 /-/cache/:site 诊断接口。
func RegisterDiagnosticsRoutes(app *fiber.App, registry *server.SiteRegistry) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/sites", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sites": encodeSites(registry.List()),
		})
	})

	app.Get("/-/compilers", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"compilers": encodeCompilers(compiler.List()),
		})
	})

	app.Get("/-/cache/:site", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("site"))
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "site_required"})
		}
		route, ok := registry.Site(name)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "site_not_found"})
		}
		entries := encodeEntries(route)
		return c.JSON(fiber.Map{
			"site":    route.Config.Name,
			"entries": entries,
			"count":   len(entries),
		})
	})
}

type sitePayload struct {
	Name              string `json:"name"`
	Domain            string `json:"domain"`
	Root              string `json:"root"`
	Compiler          string `json:"compiler"`
	FileNameTransform string `json:"file_name_transform"`
	OverrideCache     bool   `json:"override_cache"`
	Port              int    `json:"port"`
	CachedEntries     int    `json:"cached_entries"`
}

type compilerPayload struct {
	Key               string `json:"key"`
	Description       string `json:"description"`
	ContentType       string `json:"content_type,omitempty"`
	DetectContentType bool   `json:"detect_content_type"`
}

type entryPayload struct {
	Key       string    `json:"key"`
	StoredAt  time.Time `json:"stored_at"`
	SizeBytes int       `json:"size_bytes"`
}

func encodeSites(routes []*server.SiteRoute) []sitePayload {
	if len(routes) == 0 {
		return nil
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Config.Name < routes[j].Config.Name
	})
	result := make([]sitePayload, 0, len(routes))
	for _, route := range routes {
		result = append(result, sitePayload{
			Name:              route.Config.Name,
			Domain:            route.Config.Domain,
			Root:              route.Config.Root,
			Compiler:          route.Compiler.Key,
			FileNameTransform: route.Config.FileNameTransform,
			OverrideCache:     route.Config.OverrideCache,
			Port:              route.ListenPort,
			CachedEntries:     len(route.Store.Snapshot()),
		})
	}
	return result
}

func encodeCompilers(defs []compiler.Definition) []compilerPayload {
	if len(defs) == 0 {
		return nil
	}
	result := make([]compilerPayload, 0, len(defs))
	for _, def := range defs {
		result = append(result, compilerPayload{
			Key:               def.Key,
			Description:       def.Description,
			ContentType:       def.ContentType,
			DetectContentType: def.DetectContentType,
		})
	}
	return result
}

func encodeEntries(route *server.SiteRoute) []entryPayload {
	snapshot := route.Store.Snapshot()
	result := make([]entryPayload, 0, len(snapshot))
	for _, entry := range snapshot {
		result = append(result, entryPayload{
			Key:       entry.Key,
			StoredAt:  entry.StoredAt,
			SizeBytes: entry.SizeBytes(),
		})
	}
	return result
}
