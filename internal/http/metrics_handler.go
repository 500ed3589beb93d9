package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
)

const defaultCampaignLimit = 10

// MetricsChannelsAction reports cost, revenue and ratios per channel over
// the requested range (last 30 days by default).
func (h *Handlers) MetricsChannelsAction(ctx *cartridge.Context) error {
	period, err := h.parseRange(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	rows, err := h.store(ctx).Aggregator().ChannelMetrics(ctx.Ctx.Context(), period)
	if err != nil {
		return storageError(ctx, err, "metrics")
	}
	return ctx.Ctx.JSON(fiber.Map{
		"period":   period,
		"channels": rows,
	})
}

func (h *Handlers) MetricsOverallAction(ctx *cartridge.Context) error {
	period, err := h.parseRange(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	overall, err := h.store(ctx).Aggregator().OverallMetrics(ctx.Ctx.Context(), period)
	if err != nil {
		return storageError(ctx, err, "metrics")
	}
	return ctx.Ctx.JSON(overall)
}

func (h *Handlers) MetricsCampaignsAction(ctx *cartridge.Context) error {
	period, err := h.parseRange(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	campaigns, err := h.store(ctx).Aggregator().TopCampaigns(ctx.Ctx.Context(), period, ctx.QueryInt("limit", defaultCampaignLimit))
	if err != nil {
		return storageError(ctx, err, "metrics")
	}
	return ctx.Ctx.JSON(fiber.Map{
		"period":    period,
		"campaigns": campaigns,
	})
}

func (h *Handlers) MetricsContactAction(ctx *cartridge.Context) error {
	summary, err := h.store(ctx).Aggregator().ContactMetrics(ctx.Ctx.Context(), ctx.Params("contactId"))
	if err != nil {
		return storageError(ctx, err, "contact")
	}
	return ctx.Ctx.JSON(summary)
}

// ContactCardAction returns the card payload for the CRM sidebar.
func (h *Handlers) ContactCardAction(ctx *cartridge.Context) error {
	period, err := h.parseRange(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	card, err := h.store(ctx).Aggregator().Card(ctx.Ctx.Context(), ctx.Params("contactId"), period)
	if err != nil {
		return storageError(ctx, err, "card")
	}
	return ctx.Ctx.JSON(card)
}
