package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"treasury/internal/core/apperror"
	"treasury/internal/domain"
)

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// ParseOrderBy turns "field", "+field" or "-field" into an ORDER BY clause.
// Fields outside allowed are rejected; an empty orderBy yields fallback.
func ParseOrderBy(orderBy, fallback string, allowed ...string) (string, error) {
	if orderBy == "" {
		return fallback, nil
	}

	// Support "-field" for DESC.
	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	for _, col := range allowed {
		if col == field {
			return field + " " + direction + ", id " + direction, nil
		}
	}
	return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy).WithDetail("field", field)
}

// SelectPage counts the rows of q, then loads one ordered page of them into T.
func SelectPage[T any](ctx context.Context, querier Querier, q squirrel.SelectBuilder, filter domain.ListFilter, orderBy string) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Items:  []T{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	// Count total (before pagination)
	countSQL, countArgs, err := Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy(orderBy)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}

	return result, nil
}

// GetOne runs q and scans a single row into dest. A missing row becomes
// apperror NotFound for entity/key.
func GetOne(ctx context.Context, querier Querier, dest any, q squirrel.SelectBuilder, entity string, key any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, querier, dest, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(entity, key)
		}
		return fmt.Errorf("get %s: %w", entity, err)
	}
	return nil
}

// InsertRow writes v into its table.
func InsertRow[T any](ctx context.Context, querier Querier, t *Table[T], v *T) error {
	sql, args, err := t.InsertOne(v).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.Name, err)
	}
	return nil
}
