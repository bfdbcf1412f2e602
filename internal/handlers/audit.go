package handlers

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/pkg/utils"
)

const auditExportLimit = 10000

type AuditHandler struct {
	Audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{Audit: audit}
}

// List pages through the caller's own audit rows, newest first.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	pagination := utils.ParsePagination(c)
	logs, total, err := h.Audit.List(c.UserContext(), currentUser.ID, pagination.Offset, pagination.Limit)
	if err != nil {
		return respondError(c, err, "failed loading audit logs")
	}
	return utils.Paginated(c, logs, pagination.Page, pagination.Limit, total)
}

func (h *AuditHandler) ExportMyLog(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	format := strings.ToLower(strings.TrimSpace(c.Query("format", "csv")))
	if format != "csv" && format != "json" {
		return utils.Error(c, fiber.StatusBadRequest, "format must be csv or json")
	}

	logs, _, err := h.Audit.List(c.UserContext(), currentUser.ID, 0, auditExportLimit)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading audit logs")
	}

	if format == "json" {
		c.Set("Content-Type", "application/json")
		c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "audit-log.json"))
		return c.JSON(fiber.Map{"success": true, "data": logs})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "audit-log.csv"))

	writer := csv.NewWriter(c.Response().BodyWriter())
	_ = writer.Write([]string{"Timestamp", "Action", "Resource Type", "Resource ID", "IP Address", "Details"})

	for _, log := range logs {
		detailStr := ""
		if log.Details != nil {
			parts := make([]string, 0, len(log.Details))
			for k, v := range log.Details {
				parts = append(parts, fmt.Sprintf("%s=%v", k, v))
			}
			sort.Strings(parts)
			detailStr = strings.Join(parts, "; ")
		}

		_ = writer.Write([]string{
			log.CreatedAt.Format(time.RFC3339),
			log.Action,
			log.ResourceType,
			log.ResourceID,
			log.IPAddress,
			detailStr,
		})
	}

	writer.Flush()
	return nil
}
