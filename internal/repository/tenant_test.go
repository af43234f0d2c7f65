package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gestao-publica/procurement-api/internal/auth"
	"github.com/gestao-publica/procurement-api/internal/repository"
)

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, repository.SortOrderAsc, repository.ParseSortOrder("asc"))
	assert.Equal(t, repository.SortOrderAsc, repository.ParseSortOrder("ASC"))
	assert.Equal(t, repository.SortOrderDesc, repository.ParseSortOrder("desc"))
	assert.Equal(t, repository.SortOrderDesc, repository.ParseSortOrder(""))
	assert.Equal(t, repository.SortOrderDesc, repository.ParseSortOrder("sideways"))
}

func TestBuildOrderClause(t *testing.T) {
	fieldMap := map[string]string{
		"number":    "number",
		"issueDate": "issue_date",
		"updatedAt": "updated_at",
	}

	t.Run("mapped field", func(t *testing.T) {
		clause := repository.BuildOrderClause(repository.SortConfig{Field: "issueDate", Order: repository.SortOrderAsc}, fieldMap, "updated_at")
		assert.Equal(t, "issue_date ASC", clause)
	})

	t.Run("unknown field falls back to the default column", func(t *testing.T) {
		clause := repository.BuildOrderClause(repository.SortConfig{Field: "nefarious; DROP TABLE", Order: repository.SortOrderDesc}, fieldMap, "updated_at")
		assert.Equal(t, "updated_at DESC", clause)
	})

	t.Run("default sort", func(t *testing.T) {
		clause := repository.BuildOrderClause(repository.DefaultSortConfig(), fieldMap, "updated_at")
		assert.Equal(t, "updated_at DESC", clause)
	})
}

func TestMustHaveTenantAccess(t *testing.T) {
	ctx := auth.WithUserContext(context.Background(), &auth.UserContext{
		Role:     auth.RoleOperator,
		TenantID: "prefeitura-a",
	})

	assert.True(t, repository.MustHaveTenantAccess(ctx, "prefeitura-a"))
	assert.False(t, repository.MustHaveTenantAccess(ctx, "prefeitura-b"))
	assert.False(t, repository.MustHaveTenantAccess(context.Background(), "prefeitura-a"))
}
