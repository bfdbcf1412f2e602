package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

func ParsePagination(c *fiber.Ctx) PaginationParams {
	return ParsePaginationLimits(c, DefaultLimit, MaxLimit)
}

// ParsePaginationLimits reads ?page=&limit= with 1-based pages, falling back
// to defaultLimit and capping at maxLimit.
func ParsePaginationLimits(c *fiber.Ctx, defaultLimit, maxLimit int) PaginationParams {
	page := parseIntDefault(c.Query("page"), 1)
	limit := parseIntDefault(c.Query("limit"), defaultLimit)

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return PaginationParams{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func ApplyPagination(db *gorm.DB, p PaginationParams) *gorm.DB {
	return db.Offset(p.Offset).Limit(p.Limit)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
