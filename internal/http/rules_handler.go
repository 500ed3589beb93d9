package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"utmlens/internal/normalization"
)

// RulesIndexAction lists every normalization rule in evaluation order.
func (h *Handlers) RulesIndexAction(ctx *cartridge.Context) error {
	rules, err := normalization.ListRules(ctx.DB())
	if err != nil {
		return storageError(ctx, err, "rules")
	}
	return ctx.Ctx.JSON(fiber.Map{"rules": rules})
}

func (h *Handlers) RuleShowAction(ctx *cartridge.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	rule, err := normalization.GetRuleByID(ctx.DB(), id)
	if err != nil {
		return storageError(ctx, err, "rule")
	}
	return ctx.Ctx.JSON(rule)
}

func (h *Handlers) RuleCreateAction(ctx *cartridge.Context) error {
	var rule normalization.Rule
	if err := ctx.BodyParser(&rule); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	rule.ID = 0
	if err := normalization.ValidateRule(&rule); err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := normalization.CreateRule(ctx.DB(), &rule); err != nil {
		return storageError(ctx, err, "rule")
	}

	ctx.Logger.Info("Normalization rule created",
		slog.Uint64("id", uint64(rule.ID)),
		slog.String("field", string(rule.Field)))
	return ctx.Ctx.Status(fiber.StatusCreated).JSON(rule)
}

// RuleUpdateAction replaces the mutable columns of a rule.
func (h *Handlers) RuleUpdateAction(ctx *cartridge.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	var rule normalization.Rule
	if err := ctx.BodyParser(&rule); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	rule.ID = id
	if err := normalization.ValidateRule(&rule); err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := normalization.UpdateRule(ctx.DB(), &rule); err != nil {
		return storageError(ctx, err, "rule")
	}

	updated, err := normalization.GetRuleByID(ctx.DB(), id)
	if err != nil {
		return storageError(ctx, err, "rule")
	}
	return ctx.Ctx.JSON(updated)
}

func (h *Handlers) RuleDeleteAction(ctx *cartridge.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := normalization.DeleteRule(ctx.DB(), id); err != nil {
		return storageError(ctx, err, "rule")
	}
	return ctx.Ctx.SendStatus(fiber.StatusNoContent)
}

type ruleTestRequest struct {
	Rule  normalization.Rule `json:"rule"`
	Value string             `json:"value"`
}

// RuleTestAction evaluates an unsaved rule against a sample value.
func (h *Handlers) RuleTestAction(ctx *cartridge.Context) error {
	var req ruleTestRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if !normalization.IsValidMatchType(req.Rule.MatchType) {
		return badRequest(ctx, "invalid match type")
	}

	matched, result := normalization.TestRule(req.Rule, req.Value)
	return ctx.Ctx.JSON(fiber.Map{
		"matches": matched,
		"result":  result,
	})
}
