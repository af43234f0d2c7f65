package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/auth"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// DefaultSortConfig returns a default sort configuration (updated_at DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "updatedAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the ORDER BY clause from a whitelist field mapping.
// fieldMap maps API field names to database column names; unknown fields fall
// back to defaultColumn.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// ApplyTenantFilter scopes a query to the authenticated user's municipality.
// Every tenant-owned table carries a tenant_id column; queries without an
// authenticated tenant match nothing.
func ApplyTenantFilter(ctx context.Context, query *gorm.DB) *gorm.DB {
	return query.Where("tenant_id = ?", auth.TenantFromContext(ctx))
}

// ApplyTenantFilterWithAlias applies the tenant filter on a joined table.
func ApplyTenantFilterWithAlias(ctx context.Context, query *gorm.DB, tableAlias string) *gorm.DB {
	return query.Where(tableAlias+".tenant_id = ?", auth.TenantFromContext(ctx))
}

// MustHaveTenantAccess reports whether the caller may touch a record owned by
// recordTenantID.
func MustHaveTenantAccess(ctx context.Context, recordTenantID string) bool {
	return auth.TenantFromContext(ctx) == recordTenantID
}
