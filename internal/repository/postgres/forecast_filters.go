package postgres

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/lib/pq"
)

// buildForecastFilterClause constructs the WHERE conditions for forecast listings
func buildForecastFilterClause(filter domain.ForecastFilter, alias string, startIndex int) (string, []interface{}, int) {
	var (
		clauses []string
		args    []interface{}
	)
	prefix := normalizeAlias(alias)
	idx := startIndex

	if len(filter.ProductIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("%sproduct_id = ANY($%d::bigint[])", prefix, idx))
		args = append(args, pq.Array(filter.ProductIDs))
		idx++
	}
	if filter.From != nil {
		clauses = append(clauses, fmt.Sprintf("%sforecast_period >= $%d", prefix, idx))
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		clauses = append(clauses, fmt.Sprintf("%sforecast_period <= $%d", prefix, idx))
		args = append(args, *filter.To)
		idx++
	}
	if filter.Method != "" {
		clauses = append(clauses, fmt.Sprintf("%smethod = $%d", prefix, idx))
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Method)))
		idx++
	}
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("%sstatus = $%d", prefix, idx))
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Status)))
		idx++
	}

	if len(clauses) == 0 {
		return "", nil, idx
	}

	return " AND " + strings.Join(clauses, " AND "), args, idx
}

func normalizeAlias(alias string) string {
	if alias == "" {
		return ""
	}
	if !strings.HasSuffix(alias, ".") {
		return alias + "."
	}
	return alias
}
