package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"utmlens/internal/channels"
	"utmlens/internal/normalization"
	"utmlens/internal/utm"
)

func (h *Handlers) MappingsIndexAction(ctx *cartridge.Context) error {
	mappings, err := channels.ListMappings(ctx.DB())
	if err != nil {
		return storageError(ctx, err, "mappings")
	}
	return ctx.Ctx.JSON(fiber.Map{"mappings": mappings})
}

func (h *Handlers) MappingShowAction(ctx *cartridge.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	m, err := channels.GetMappingByID(ctx.DB(), id)
	if err != nil {
		return storageError(ctx, err, "mapping")
	}
	return ctx.Ctx.JSON(m)
}

func (h *Handlers) MappingCreateAction(ctx *cartridge.Context) error {
	var m channels.Mapping
	if err := ctx.BodyParser(&m); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	m.ID = 0
	if err := channels.ValidateMapping(&m); err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := channels.CreateMapping(ctx.DB(), &m); err != nil {
		return storageError(ctx, err, "mapping")
	}

	ctx.Logger.Info("Source mapping created",
		slog.Uint64("id", uint64(m.ID)),
		slog.String("channel", m.Channel))
	return ctx.Ctx.Status(fiber.StatusCreated).JSON(m)
}

func (h *Handlers) MappingUpdateAction(ctx *cartridge.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	var m channels.Mapping
	if err := ctx.BodyParser(&m); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	m.ID = id
	if err := channels.ValidateMapping(&m); err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := channels.UpdateMapping(ctx.DB(), &m); err != nil {
		return storageError(ctx, err, "mapping")
	}

	updated, err := channels.GetMappingByID(ctx.DB(), id)
	if err != nil {
		return storageError(ctx, err, "mapping")
	}
	return ctx.Ctx.JSON(updated)
}

func (h *Handlers) MappingDeleteAction(ctx *cartridge.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := channels.DeleteMapping(ctx.DB(), id); err != nil {
		return storageError(ctx, err, "mapping")
	}
	return ctx.Ctx.SendStatus(fiber.StatusNoContent)
}

// MappingResolveAction shows how a set of parameters would be classified,
// after normalization, without storing anything.
func (h *Handlers) MappingResolveAction(ctx *cartridge.Context) error {
	var params utm.Params
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	st := h.store(ctx)
	normalized, err := st.Normalizer().Normalize(ctx.Ctx.Context(), params)
	if err != nil {
		return storageError(ctx, err, "rules")
	}
	result, err := st.Mapper().MapToSource(ctx.Ctx.Context(), normalized)
	if err != nil {
		return storageError(ctx, err, "mappings")
	}

	return ctx.Ctx.JSON(fiber.Map{
		"normalized": normalized,
		"validation": normalization.Validate(params),
		"result":     result,
	})
}
