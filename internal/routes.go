package internal

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"
	"gorm.io/gorm"

	v1 "utmlens/api/v1"
	"utmlens/internal/config"
	"utmlens/internal/crm"
	"utmlens/internal/http"
	"utmlens/internal/http/middleware"
	"utmlens/internal/pkg/telemetry"
	"utmlens/internal/settings"
	"utmlens/internal/store"
)

// publicCORSConfig is shared by the tracking endpoints, which are called
// from arbitrary landing pages.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent",
}

// NewSyncDispatcher builds the background CRM sync pipeline over db.
func NewSyncDispatcher(cfg *config.Config, db *gorm.DB, client *crm.Client, logger *slog.Logger) *crm.Dispatcher {
	st := store.New(db, logger)
	syncer := crm.NewSyncer(st.Aggregator(), client, st, nil, logger)
	return crm.NewDispatcher(syncer, cfg.GetHubSpotTimeout(), logger)
}

// MountAppRoutes returns the route mount for the application, wired to the
// shared CRM client and sync dispatcher.
func MountAppRoutes(cfg *config.Config, dispatcher *crm.Dispatcher, client *crm.Client) func(*cartridge.Server) {
	return func(srv *cartridge.Server) {
		h := http.NewHandlers(dispatcher, client, nil, settings.DefaultsFromConfig(cfg))
		h.SiteHost = cfg.Domain
		MountRoutes(srv, cfg, h)
	}
}

// MountRoutes mounts the routes served by h. Tests call it directly with
// handlers built around fakes.
func MountRoutes(srv *cartridge.Server, cfg *config.Config, h *http.Handlers) {
	logger := srv.GetLogger()

	// Rate limiting only applies in production; it gets in the way of
	// local testing.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// 120 hits per minute per IP covers a busy landing page
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Admin writes are few; keep brute force on the API key slow
	adminRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(300),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	// Server to server calls carry no Sec-Fetch-Site header
	adminAPIConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware: []fiber.Handler{
			adminRateLimiter,
			middleware.AdminAPIKeyAuth(cfg.AdminAPIKey, logger),
		},
	}

	preflight := func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}

	// === HEALTH AND METRICS ===
	srv.Get("/_health", h.HealthIndexAction)
	srv.Head("/_health", h.HealthIndexAction)
	srv.App().Get("/metrics", adaptor.HTTPHandler(telemetry.Handler()))

	// === PUBLIC TRACKING API ===
	public := v1.NewPublicAPI(h)
	srv.Post("/x/api/v1/utm", public.CreateTouchpointAction, publicAPIConfig)
	srv.Options("/x/api/v1/utm", preflight, publicAPIConfig)
	srv.Post("/x/api/v1/utm/beacon", public.CreateTouchpointBeaconAction, publicAPIConfig)
	srv.Options("/x/api/v1/utm/beacon", preflight, publicAPIConfig)
	srv.Post("/x/api/v1/conversions", public.CreateConversionAction, publicAPIConfig)
	srv.Options("/x/api/v1/conversions", preflight, publicAPIConfig)

	// === NORMALIZATION RULES ===
	// Static segments go before :id so they are not captured by it.
	srv.Get("/api/rules", h.RulesIndexAction, adminAPIConfig)
	srv.Post("/api/rules", h.RuleCreateAction, adminAPIConfig)
	srv.Post("/api/rules/test", h.RuleTestAction, adminAPIConfig)
	srv.Get("/api/rules/:id", h.RuleShowAction, adminAPIConfig)
	srv.Post("/api/rules/:id", h.RuleUpdateAction, adminAPIConfig)
	srv.Delete("/api/rules/:id", h.RuleDeleteAction, adminAPIConfig)

	// === SOURCE MAPPINGS ===
	srv.Get("/api/mappings", h.MappingsIndexAction, adminAPIConfig)
	srv.Post("/api/mappings", h.MappingCreateAction, adminAPIConfig)
	srv.Post("/api/mappings/resolve", h.MappingResolveAction, adminAPIConfig)
	srv.Get("/api/mappings/:id", h.MappingShowAction, adminAPIConfig)
	srv.Post("/api/mappings/:id", h.MappingUpdateAction, adminAPIConfig)
	srv.Delete("/api/mappings/:id", h.MappingDeleteAction, adminAPIConfig)

	// === CHANNEL COSTS ===
	srv.Get("/api/costs", h.CostsIndexAction, adminAPIConfig)
	srv.Post("/api/costs", h.CostCreateAction, adminAPIConfig)
	srv.Get("/api/costs/:id", h.CostShowAction, adminAPIConfig)
	srv.Post("/api/costs/:id", h.CostUpdateAction, adminAPIConfig)
	srv.Delete("/api/costs/:id", h.CostDeleteAction, adminAPIConfig)

	// === TOUCHPOINTS AND ATTRIBUTION ===
	srv.Get("/api/touchpoints", h.TouchpointsIndexAction, adminAPIConfig)
	srv.Get("/api/touchpoints/:id", h.TouchpointShowAction, adminAPIConfig)
	srv.Get("/api/attribution/:contactId", h.AttributionEventsAction, adminAPIConfig)
	srv.Post("/api/attribution/:contactId/recalculate", h.AttributionRecalculateAction, adminAPIConfig)

	// === METRICS ===
	srv.Get("/api/metrics/channels", h.MetricsChannelsAction, adminAPIConfig)
	srv.Get("/api/metrics/overall", h.MetricsOverallAction, adminAPIConfig)
	srv.Get("/api/metrics/campaigns", h.MetricsCampaignsAction, adminAPIConfig)
	srv.Get("/api/metrics/contacts/:contactId", h.MetricsContactAction, adminAPIConfig)
	srv.Get("/api/cards/contacts/:contactId", h.ContactCardAction, adminAPIConfig)

	// === SETTINGS ===
	srv.Get("/api/settings", h.SettingsIndexAction, adminAPIConfig)
	srv.Get("/api/settings/attribution", h.AttributionSettingsShowAction, adminAPIConfig)
	srv.Post("/api/settings/attribution", h.AttributionSettingsUpdateAction, adminAPIConfig)

	// === ADMINISTRATION ===
	srv.Post("/api/admin/seed", h.AdminSeedAction, adminAPIConfig)
	srv.Post("/api/admin/clear", h.AdminClearAction, adminAPIConfig)
	srv.Post("/api/crm/sync/:contactId", h.CRMSyncAction, adminAPIConfig)
	srv.Get("/api/crm/sync/:contactId", h.CRMSyncStateAction, adminAPIConfig)
}
