package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"utmlens/internal/crm"
	"utmlens/internal/settings"
	"utmlens/internal/store"
	"utmlens/internal/timeframe"
	"utmlens/internal/touchpoints"
)

// Handlers carries the long-lived collaborators of the JSON API. Storage is
// taken from the request context on every call.
type Handlers struct {
	Dispatcher touchpoints.SyncDispatcher
	CRM        crm.ContactUpdater
	Clock      timeframe.TimeProvider
	Defaults   settings.AttributionDefaults
	// SiteHost is the tracked site's own domain; referrals from it are
	// not inferred as traffic sources.
	SiteHost string
}

func NewHandlers(dispatcher touchpoints.SyncDispatcher, client crm.ContactUpdater, clock timeframe.TimeProvider, defaults settings.AttributionDefaults) *Handlers {
	if clock == nil {
		clock = &timeframe.DefaultTimeProvider{}
	}
	return &Handlers{
		Dispatcher: dispatcher,
		CRM:        client,
		Clock:      clock,
		Defaults:   defaults,
	}
}

func (h *Handlers) store(ctx *cartridge.Context) *store.Store {
	return store.New(ctx.DB(), ctx.Logger)
}

// attributionDefaults returns the stored defaults, falling back to the
// configured ones when the settings table is unreadable.
func (h *Handlers) attributionDefaults(ctx *cartridge.Context) settings.AttributionDefaults {
	d, err := settings.GetAttributionDefaults(ctx.DB(), h.Defaults)
	if err != nil {
		ctx.Logger.Warn("Failed to load attribution defaults", slog.Any("error", err))
		return h.Defaults
	}
	return d
}

func (h *Handlers) parseRange(ctx *cartridge.Context) (timeframe.Range, error) {
	parser := timeframe.NewParser(timeframe.RangeLast30Days, h.Clock)
	return parser.Parse(timeframe.ParserParams{
		Range:    ctx.Query("range"),
		FromDate: ctx.Query("from"),
		ToDate:   ctx.Query("to"),
		Tz:       ctx.Query("tz"),
	})
}

func badRequest(ctx *cartridge.Context, msg string) error {
	return ctx.Ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// storageError maps a failed lookup to 404 and anything else to 500.
func storageError(ctx *cartridge.Context, err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ctx.Ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": what + " not found",
		})
	}
	ctx.Logger.Error("Storage operation failed",
		slog.String("entity", what),
		slog.Any("error", err))
	return ctx.Ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

func paramID(ctx *cartridge.Context) (uint, error) {
	id, err := ctx.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
