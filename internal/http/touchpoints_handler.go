package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"utmlens/internal/touchpoints"
)

const defaultTouchpointLimit = 100

// TouchpointsIndexAction lists stored touchpoints, newest first.
func (h *Handlers) TouchpointsIndexAction(ctx *cartridge.Context) error {
	f := touchpoints.ListFilter{
		ContactID: ctx.Query("contact_id"),
		Channel:   ctx.Query("channel"),
		Limit:     ctx.QueryInt("limit", defaultTouchpointLimit),
	}
	if ctx.Query("from") != "" || ctx.Query("to") != "" || ctx.Query("range") != "" {
		period, err := h.parseRange(ctx)
		if err != nil {
			return badRequest(ctx, err.Error())
		}
		f.From, f.To = period.From, period.To
	}

	records, err := touchpoints.ListRecords(ctx.DB(), f)
	if err != nil {
		return storageError(ctx, err, "touchpoints")
	}
	return ctx.Ctx.JSON(fiber.Map{"touchpoints": records})
}

func (h *Handlers) TouchpointShowAction(ctx *cartridge.Context) error {
	record, err := touchpoints.GetRecordByID(ctx.DB(), ctx.Params("id"))
	if err != nil {
		return storageError(ctx, err, "touchpoint")
	}
	return ctx.Ctx.JSON(record)
}
