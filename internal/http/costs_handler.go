package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"utmlens/internal/costs"
)

// CostsIndexAction lists cost records whose window lies inside the
// requested range. Without from/to every record is returned.
func (h *Handlers) CostsIndexAction(ctx *cartridge.Context) error {
	f := costs.Filter{
		Channel:      ctx.Query("channel"),
		Source:       ctx.Query("source"),
		SourceDetail: ctx.Query("source_detail"),
	}
	if ctx.Query("from") != "" || ctx.Query("to") != "" || ctx.Query("range") != "" {
		period, err := h.parseRange(ctx)
		if err != nil {
			return badRequest(ctx, err.Error())
		}
		f.From, f.To = period.From, period.To
	}

	records, err := costs.ListCosts(ctx.DB(), f)
	if err != nil {
		return storageError(ctx, err, "costs")
	}
	return ctx.Ctx.JSON(fiber.Map{"costs": records})
}

func (h *Handlers) CostShowAction(ctx *cartridge.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	c, err := costs.GetCostByID(ctx.DB(), id)
	if err != nil {
		return storageError(ctx, err, "cost")
	}
	return ctx.Ctx.JSON(c)
}

func (h *Handlers) CostCreateAction(ctx *cartridge.Context) error {
	var c costs.ChannelCost
	if err := ctx.BodyParser(&c); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	c.ID = 0
	if err := costs.Prepare(&c); err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := costs.CreateCost(ctx.DB(), &c); err != nil {
		return storageError(ctx, err, "cost")
	}

	ctx.Logger.Info("Channel cost recorded",
		slog.String("channel", c.Channel),
		slog.Float64("cost", c.Cost))
	return ctx.Ctx.Status(fiber.StatusCreated).JSON(c)
}

func (h *Handlers) CostUpdateAction(ctx *cartridge.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	var c costs.ChannelCost
	if err := ctx.BodyParser(&c); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	c.ID = id
	if err := costs.Prepare(&c); err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := costs.UpdateCost(ctx.DB(), &c); err != nil {
		return storageError(ctx, err, "cost")
	}

	updated, err := costs.GetCostByID(ctx.DB(), id)
	if err != nil {
		return storageError(ctx, err, "cost")
	}
	return ctx.Ctx.JSON(updated)
}

func (h *Handlers) CostDeleteAction(ctx *cartridge.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := costs.DeleteCost(ctx.DB(), id); err != nil {
		return storageError(ctx, err, "cost")
	}
	return ctx.Ctx.SendStatus(fiber.StatusNoContent)
}
