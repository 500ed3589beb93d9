package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"utmlens/internal/settings"
)

// SettingsIndexAction lists every stored setting with secrets masked.
func (h *Handlers) SettingsIndexAction(ctx *cartridge.Context) error {
	all, err := settings.GetAllSettingsForDisplay(ctx.DB())
	if err != nil {
		return storageError(ctx, err, "settings")
	}
	return ctx.Ctx.JSON(fiber.Map{"settings": all})
}

func (h *Handlers) AttributionSettingsShowAction(ctx *cartridge.Context) error {
	return ctx.Ctx.JSON(h.attributionDefaults(ctx))
}

// AttributionSettingsUpdateAction changes the default model and half-life.
// Omitted fields keep their current value.
func (h *Handlers) AttributionSettingsUpdateAction(ctx *cartridge.Context) error {
	current := h.attributionDefaults(ctx)

	var req settings.AttributionDefaults
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if req.Model == "" {
		req.Model = current.Model
	}
	if req.HalfLifeDays == 0 {
		req.HalfLifeDays = current.HalfLifeDays
	}
	if err := req.Validate(); err != nil {
		return badRequest(ctx, err.Error())
	}

	if err := settings.SaveAttributionDefaults(ctx.DB(), req); err != nil {
		return storageError(ctx, err, "settings")
	}

	ctx.Logger.Info("Attribution defaults updated",
		slog.String("model", string(req.Model)),
		slog.Float64("half_life_days", req.HalfLifeDays))
	return ctx.Ctx.JSON(req)
}
