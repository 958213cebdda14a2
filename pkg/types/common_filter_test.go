package types

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

// sqlBuilder is a minimal clause.Builder capturing the generated SQL shape.
type sqlBuilder struct {
	strings.Builder
	vars int
}

func (b *sqlBuilder) WriteQuoted(field interface{}) {
	b.WriteString(fmt.Sprint(field))
}

func (b *sqlBuilder) AddVar(_ clause.Writer, vars ...interface{}) {
	for i := range vars {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		b.vars++
	}
}

func (b *sqlBuilder) AddError(err error) error { return err }

func TestCommonFilter_BuildDateRange(t *testing.T) {
	f := &CommonFilter{
		Field:    "created_at",
		Operator: CommonFilterOperatorDateRange,
		Values:   []any{"2026-01-01", "2026-01-31"},
	}

	var b sqlBuilder
	f.Build(&b)

	sql := b.String()
	require.Contains(t, sql, "created_at >= ?")
	require.Contains(t, sql, "created_at <= ?")
	require.Contains(t, sql, " AND ")
	require.Equal(t, 2, b.vars)
}

func TestCommonFilter_BuildEq(t *testing.T) {
	f := &CommonFilter{
		Field:    "game_id",
		Operator: CommonFilterOperatorEq,
		Values:   []any{1},
	}

	var b sqlBuilder
	f.Build(&b)

	require.Equal(t, "game_id = ?", b.String())
}
