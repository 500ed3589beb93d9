package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	apphttp "utmlens/internal/http"
	"utmlens/internal/touchpoints"
	"utmlens/internal/utm"
)

const (
	msgTouchpointAdded = "Touchpoint recorded successfully"
	msgConversionAdded = "Conversion attributed successfully"
	errInvalidRequest  = "Invalid request"
)

// PublicAPI serves the tracking endpoints called from landing pages and
// form handlers.
type PublicAPI struct {
	handlers *apphttp.Handlers
}

func NewPublicAPI(handlers *apphttp.Handlers) *PublicAPI {
	return &PublicAPI{handlers: handlers}
}

// CreateTouchpointParams is one tracking hit. Explicit utm_* fields win
// over the ones found in url.
type CreateTouchpointParams struct {
	utm.Params
	URL       string    `json:"url"`
	Referrer  string    `json:"referrer"`
	ContactID string    `json:"contact_id"`
	DealID    string    `json:"deal_id"`
	Revenue   float64   `json:"revenue"`
	Timestamp time.Time `json:"timestamp"`
}

func (p CreateTouchpointParams) validate() error {
	if p.URL != "" {
		if _, err := utm.FromURL(p.URL); err != nil {
			return fiber.NewError(http.StatusBadRequest, "Invalid url")
		}
	}
	if p.Revenue < 0 {
		return fiber.NewError(http.StatusBadRequest, "Revenue must not be negative")
	}
	return nil
}

func (p CreateTouchpointParams) input() touchpoints.Input {
	return touchpoints.Input{
		Params:     p.Params,
		LandingURL: p.URL,
		Referrer:   p.Referrer,
		ContactID:  p.ContactID,
		DealID:     p.DealID,
		Revenue:    p.Revenue,
		Timestamp:  p.Timestamp,
	}
}

// CreateTouchpointAction normalizes, classifies and stores one touchpoint.
// Validation issues in the raw parameters are reported but never reject
// the hit.
func (api *PublicAPI) CreateTouchpointAction(ctx *cartridge.Context) error {
	ctx.Logger.Debug("Received touchpoint request", slog.String("method", ctx.Method()), slog.String("path", ctx.Path()))

	var params CreateTouchpointParams
	if err := ctx.BodyParser(&params); err != nil {
		return handleError(ctx.Ctx, fiber.NewError(http.StatusBadRequest, errInvalidRequest))
	}
	if params.Referrer == "" {
		params.Referrer = ctx.Get("Referer")
	}
	if err := params.validate(); err != nil {
		return handleError(ctx.Ctx, err)
	}

	outcome, err := api.handlers.Ingestor(ctx).Ingest(ctx.Ctx.Context(), params.input())
	if err != nil {
		ctx.Logger.Error("Failed to ingest touchpoint", slog.Any("error", err))
		if isBusy(err) {
			return ctx.Ctx.Status(599).JSON(fiber.Map{}) // custom status code
		}
		return ctx.Ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record touchpoint",
			"code":  "INGESTION_ERROR",
		})
	}

	return ctx.Ctx.Status(http.StatusCreated).JSON(fiber.Map{
		"message":                msgTouchpointAdded,
		"touchpoint":             outcome.Record,
		"validation":             outcome.Validation,
		"inferred_from_referrer": outcome.Inferred,
	})
}

// CreateTouchpointBeaconAction accepts hits sent with navigator.sendBeacon,
// which posts text/plain and ignores the response. It always answers 202.
func (api *PublicAPI) CreateTouchpointBeaconAction(ctx *cartridge.Context) error {
	var params CreateTouchpointParams
	if err := json.Unmarshal(ctx.Body(), &params); err != nil {
		ctx.Logger.Debug("Failed to parse beacon request", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}
	if err := params.validate(); err != nil {
		ctx.Logger.Debug("Rejected beacon request", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}

	if _, err := api.handlers.Ingestor(ctx).Ingest(ctx.Ctx.Context(), params.input()); err != nil {
		ctx.Logger.Error("Failed to ingest beacon touchpoint", slog.Any("error", err))
	}
	return ctx.SendStatus(http.StatusAccepted)
}

type CreateConversionParams struct {
	ContactID    string  `json:"contact_id"`
	DealID       string  `json:"deal_id"`
	Revenue      float64 `json:"revenue"`
	Model        string  `json:"model"`
	HalfLifeDays float64 `json:"half_life_days"`
}

// CreateConversionAction credits a conversion across the contact's
// touchpoints. A contact without touchpoints gets no events.
func (api *PublicAPI) CreateConversionAction(ctx *cartridge.Context) error {
	var params CreateConversionParams
	if err := ctx.BodyParser(&params); err != nil {
		return handleError(ctx.Ctx, fiber.NewError(http.StatusBadRequest, errInvalidRequest))
	}
	if params.ContactID == "" {
		return handleError(ctx.Ctx, fiber.NewError(http.StatusBadRequest, "contact_id is required"))
	}
	if params.Revenue < 0 {
		return handleError(ctx.Ctx, fiber.NewError(http.StatusBadRequest, "Revenue must not be negative"))
	}

	cfg, err := api.handlers.AttributionConfig(ctx, params.Model, params.HalfLifeDays)
	if err != nil {
		return handleError(ctx.Ctx, fiber.NewError(http.StatusBadRequest, err.Error()))
	}

	events, err := api.handlers.Calculator(ctx).CreateAttribution(ctx.Ctx.Context(), params.ContactID, params.DealID, params.Revenue, cfg)
	if err != nil {
		ctx.Logger.Error("Failed to attribute conversion",
			slog.String("contact_id", params.ContactID),
			slog.Any("error", err))
		return ctx.Ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to attribute conversion",
			"code":  "ATTRIBUTION_ERROR",
		})
	}

	ctx.Logger.Info("Conversion attributed",
		slog.String("contact_id", params.ContactID),
		slog.String("model", string(cfg.Model)),
		slog.Int("events", len(events)))

	api.handlers.DispatchSync(params.ContactID)
	return ctx.Ctx.Status(http.StatusCreated).JSON(fiber.Map{
		"message": msgConversionAdded,
		"model":   cfg.Model,
		"events":  events,
	})
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func handleError(c *fiber.Ctx, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}

	return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": errInvalidRequest,
	})
}
