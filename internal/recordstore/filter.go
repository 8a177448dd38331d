package recordstore

import (
	"fmt"
	"strings"
)

// Filter helpers build expressions in the store's formula DSL. Only the
// small subset the repository needs is covered: equality, AND/OR, and
// case-insensitive substring match.

func Eq(field string, value string) string {
	return fmt.Sprintf("{%s}='%s'", field, escape(value))
}

func And(exprs ...string) string {
	return combine("AND", exprs)
}

func Or(exprs ...string) string {
	return combine("OR", exprs)
}

// Contains matches records whose field contains substr, ignoring case. The
// store evaluates FIND against the joined text of array fields too, which
// is what the product-name search paths rely on.
func Contains(field string, substr string) string {
	return fmt.Sprintf("FIND('%s',LOWER({%s}))", escape(strings.ToLower(substr)), field)
}

func combine(op string, exprs []string) string {
	kept := exprs[:0]
	for _, e := range exprs {
		if e != "" {
			kept = append(kept, e)
		}
	}
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	}
	return fmt.Sprintf("%s(%s)", op, strings.Join(kept, ","))
}

func escape(value string) string {
	return strings.ReplaceAll(value, "'", "\\'")
}
