package http

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	DBStatus   string    `json:"db_status"`
	CRMEnabled bool      `json:"crm_enabled"`
}

// HealthIndexAction reports database connectivity and whether CRM sync is
// configured. A failed ping degrades the status but still answers 200.
func (h *Handlers) HealthIndexAction(ctx *cartridge.Context) error {
	dbStatus := "ok"

	db := ctx.DBManager.GetConnection()
	if db == nil {
		dbStatus = "error"
		ctx.Logger.Error("Database connection unavailable")
	} else {
		sqlDB, err := db.DB()
		if err != nil {
			dbStatus = "error"
			ctx.Logger.Error("Database connection error", slog.Any("error", err))
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error"
			ctx.Logger.Error("Database ping failed", slog.Any("error", err))
		}
	}

	health := HealthStatus{
		Status:     "ok",
		Timestamp:  h.Clock.Now(time.UTC),
		DBStatus:   dbStatus,
		CRMEnabled: h.CRM != nil && h.CRM.Enabled(),
	}

	if dbStatus != "ok" {
		health.Status = "degraded"
	}

	return ctx.Ctx.JSON(health)
}
