package postgres

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/marketwire/internal/domain"
)

// timeWindow builds a WHERE clause from the fixed conditions in base plus the
// Since/Until bounds of opts applied to column. Placeholders continue after
// the ones already in base's args.
func timeWindow(column string, opts domain.ListOpts, base []string, baseArgs ...any) (string, []any) {
	conds := append([]string(nil), base...)
	args := append([]any(nil), baseArgs...)

	if opts.Since != nil {
		args = append(args, *opts.Since)
		conds = append(conds, fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		conds = append(conds, fmt.Sprintf("%s <= $%d", column, len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// pageClause appends LIMIT/OFFSET placeholders for opts to args.
func pageClause(opts domain.ListOpts, args *[]any) string {
	var b strings.Builder
	if opts.Limit > 0 {
		*args = append(*args, opts.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(*args))
	}
	if opts.Offset > 0 {
		*args = append(*args, opts.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(*args))
	}
	return b.String()
}
