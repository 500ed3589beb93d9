package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"utmlens/internal/attribution"
	"utmlens/internal/touchpoints"
)

// AttributionConfig resolves the model and half-life for one computation.
// Empty values fall back to the stored defaults.
func (h *Handlers) AttributionConfig(ctx *cartridge.Context, rawModel string, halfLifeDays float64) (attribution.Config, error) {
	defaults := h.attributionDefaults(ctx)
	cfg := defaults.Config()
	if rawModel != "" {
		model, err := attribution.ParseModel(rawModel)
		if err != nil {
			return attribution.Config{}, err
		}
		cfg.Model = model
	}
	if halfLifeDays > 0 {
		cfg.HalfLife = time.Duration(halfLifeDays * float64(24*time.Hour))
	}
	return cfg, nil
}

// Calculator builds an attribution calculator over the request's database.
func (h *Handlers) Calculator(ctx *cartridge.Context) *attribution.Calculator {
	return h.store(ctx).Calculator(h.Clock, h.attributionDefaults(ctx).HalfLife())
}

// AttributionRecalculateAction recomputes a contact's attribution. The
// default mode appends the new events; mode=replace drops the old ones
// first.
func (h *Handlers) AttributionRecalculateAction(ctx *cartridge.Context) error {
	contactID := ctx.Params("contactId")
	if contactID == "" {
		return badRequest(ctx, "contact id is required")
	}

	cfg, err := h.AttributionConfig(ctx, ctx.Query("model"), ctx.QueryFloat("half_life_days", 0))
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	mode := ctx.Query("mode", "append")
	calc := h.Calculator(ctx)

	var events []attribution.Event
	switch mode {
	case "append":
		events, err = calc.AppendRecalculatedAttribution(ctx.Ctx.Context(), contactID, cfg)
	case "replace":
		events, err = calc.ReplaceAttribution(ctx.Ctx.Context(), contactID, cfg)
	default:
		return badRequest(ctx, "mode must be append or replace")
	}
	if err != nil {
		return storageError(ctx, err, "attribution")
	}

	ctx.Logger.Info("Attribution recalculated",
		slog.String("contact_id", contactID),
		slog.String("model", string(cfg.Model)),
		slog.String("mode", mode),
		slog.Int("events", len(events)))

	h.DispatchSync(contactID)
	return ctx.Ctx.JSON(fiber.Map{
		"contact_id": contactID,
		"model":      cfg.Model,
		"mode":       mode,
		"events":     events,
	})
}

// AttributionEventsAction lists the stored events of a contact.
func (h *Handlers) AttributionEventsAction(ctx *cartridge.Context) error {
	events, err := attribution.ListEventsForContact(ctx.DB(), ctx.Params("contactId"))
	if err != nil {
		return storageError(ctx, err, "attribution events")
	}
	return ctx.Ctx.JSON(fiber.Map{"events": events})
}

// DispatchSync queues a background CRM push for contactID.
func (h *Handlers) DispatchSync(contactID string) {
	if h.Dispatcher != nil {
		h.Dispatcher.Dispatch(contactID)
	}
}

// Ingestor builds the touchpoint pipeline over the request's database.
func (h *Handlers) Ingestor(ctx *cartridge.Context) *touchpoints.Ingestor {
	return h.store(ctx).Ingestor(h.Dispatcher, h.Clock).WithSiteHost(h.SiteHost)
}
