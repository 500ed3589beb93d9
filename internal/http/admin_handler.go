package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"utmlens/internal/crm"
	"utmlens/internal/seeder"
)

// AdminSeedAction installs the default rules and mappings. With
// ?demo=N it also generates N demo contacts with journeys and spend.
func (h *Handlers) AdminSeedAction(ctx *cartridge.Context) error {
	st := h.store(ctx)
	if err := st.SeedDefaults(ctx.Ctx.Context()); err != nil {
		return storageError(ctx, err, "seed")
	}

	demo := ctx.QueryInt("demo", 0)
	if demo <= 0 {
		return ctx.Ctx.JSON(fiber.Map{"message": "Defaults seeded"})
	}

	s := seeder.NewSeeder(st.DB(), st.Ingestor(nil, h.Clock), h.Calculator(ctx), ctx.Logger, demo)
	s.Now = h.Clock.Now(time.UTC)
	summary, err := s.Run(ctx.Ctx.Context())
	if err != nil {
		return storageError(ctx, err, "seed")
	}
	return ctx.Ctx.JSON(fiber.Map{
		"message": "Defaults and demo data seeded",
		"summary": summary,
	})
}

// AdminClearAction deletes all domain data. Settings survive.
func (h *Handlers) AdminClearAction(ctx *cartridge.Context) error {
	if err := h.store(ctx).Clear(ctx.Ctx.Context()); err != nil {
		return storageError(ctx, err, "data")
	}
	ctx.Logger.Warn("All tracking data cleared")
	return ctx.Ctx.SendStatus(fiber.StatusNoContent)
}

// CRMSyncAction pushes one contact to the CRM synchronously and reports the
// outcome. Unlike ingestion, a failure here is returned to the caller.
func (h *Handlers) CRMSyncAction(ctx *cartridge.Context) error {
	contactID := ctx.Params("contactId")
	st := h.store(ctx)
	syncer := crm.NewSyncer(st.Aggregator(), h.CRM, st, h.Clock, ctx.Logger)
	if !syncer.Enabled() {
		return ctx.Ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "CRM sync is not configured",
		})
	}

	if err := syncer.SyncContact(ctx.Ctx.Context(), contactID); err != nil {
		ctx.Logger.Warn("Manual CRM sync failed",
			slog.String("contact_id", contactID),
			slog.Any("error", err))
		return ctx.Ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return ctx.Ctx.JSON(fiber.Map{"message": "Contact synced", "contact_id": contactID})
}

// CRMSyncStateAction reports the last sync outcome of a contact.
func (h *Handlers) CRMSyncStateAction(ctx *cartridge.Context) error {
	state, err := crm.GetSyncState(ctx.DB(), ctx.Params("contactId"))
	if err != nil {
		return storageError(ctx, err, "sync state")
	}
	return ctx.Ctx.JSON(state)
}
