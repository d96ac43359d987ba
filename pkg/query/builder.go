package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// predicate is a WHERE fragment with one "?" per argument. Placeholders
// are numbered when the statement is rendered.
type predicate struct {
	sql  string
	args []any
}

// SortField is one ORDER BY term. Field is a projected view name.
type SortField struct {
	Field      string
	Descending bool
}

// Builder accumulates predicates and ordering for a single projection and
// renders them as PostgreSQL statements with $n placeholders.
type Builder struct {
	projection  *ProjectionMap
	predicates  []predicate
	order       []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder for the projection. defaultSort applies when
// OrderByFields is never called or is called with no fields.
//
// Any rendered ORDER BY ends on the projection's first column, the row
// identity, so rows tied on every sort key keep a stable page order.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// ParseSortFields parses "Intent,-Timestamp" into sort fields. A leading
// "-" marks a descending field. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Build renders a SELECT over every projected column.
func (b *Builder) Build() (string, []any) {
	return b.render("SELECT "+b.projection.Columns(), true, "")
}

// BuildCount renders a COUNT(*) under the current predicates.
func (b *Builder) BuildCount() (string, []any) {
	return b.render("SELECT COUNT(*)", false, "")
}

// BuildPage renders a SELECT for a 1-based page of pageSize rows.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	offset := (page - 1) * pageSize
	return b.render(
		"SELECT "+b.projection.Columns(),
		true,
		fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, offset),
	)
}

// BuildFirst renders a SELECT for the first row under the current ordering.
func (b *Builder) BuildFirst() (string, []any) {
	return b.render("SELECT "+b.projection.Columns(), true, " LIMIT 1")
}

// BuildSingle renders a SELECT for one row by identity. Other predicates
// on the builder are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(),
		b.projection.Table(),
		b.projection.Column(idField),
	)
	return sql, []any{id}
}

// OrderByFields replaces the ordering. Fields that are not projected are
// dropped when rendered.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.order = fields
	return b
}

// WhereEquals adds field = value. Nil values are skipped.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	return b.compare(field, "=", value)
}

// WhereAtLeast adds field >= value. Nil values are skipped.
func (b *Builder) WhereAtLeast(field string, value any) *Builder {
	return b.compare(field, ">=", value)
}

// WhereBefore adds field < value. Nil values are skipped.
func (b *Builder) WhereBefore(field string, value any) *Builder {
	return b.compare(field, "<", value)
}

// WhereContains adds a case-insensitive substring match. Nil and empty
// values are skipped.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	b.predicates = append(b.predicates, predicate{
		sql:  b.projection.Column(field) + " ILIKE ?",
		args: []any{"%" + *value + "%"},
	})
	return b
}

// WhereSearch matches value case-insensitively against any of fields. Nil
// and empty values are skipped.
func (b *Builder) WhereSearch(value *string, fields ...string) *Builder {
	if value == nil || *value == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + *value + "%"
	terms := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		terms[i] = b.projection.Column(field) + " ILIKE ?"
		args[i] = pattern
	}

	b.predicates = append(b.predicates, predicate{
		sql:  "(" + strings.Join(terms, " OR ") + ")",
		args: args,
	})
	return b
}

func (b *Builder) compare(field, op string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.predicates = append(b.predicates, predicate{
		sql:  b.projection.Column(field) + " " + op + " ?",
		args: []any{value},
	})
	return b
}

func (b *Builder) render(head string, ordered bool, tail string) (string, []any) {
	var sb strings.Builder
	sb.WriteString(head)
	sb.WriteString(" FROM ")
	sb.WriteString(b.projection.Table())

	args := b.writeWhere(&sb)
	if ordered {
		b.writeOrderBy(&sb)
	}
	sb.WriteString(tail)

	return sb.String(), args
}

func (b *Builder) writeWhere(sb *strings.Builder) []any {
	if len(b.predicates) == 0 {
		return nil
	}

	var args []any
	sb.WriteString(" WHERE ")
	for i, p := range b.predicates {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		rest := p.sql
		for _, arg := range p.args {
			before, after, _ := strings.Cut(rest, "?")
			args = append(args, arg)
			sb.WriteString(before)
			sb.WriteString("$" + strconv.Itoa(len(args)))
			rest = after
		}
		sb.WriteString(rest)
	}
	return args
}

func (b *Builder) writeOrderBy(sb *strings.Builder) {
	fields := b.order
	if len(fields) == 0 {
		fields = b.defaultSort
	}

	var (
		terms []string
		key   = b.identity()
		keyed bool
		desc  bool
	)
	for _, f := range fields {
		col, ok := b.projection.Lookup(f.Field)
		if !ok {
			continue
		}
		keyed = keyed || col == key
		desc = f.Descending
		terms = append(terms, col+direction(desc))
	}
	if len(terms) == 0 {
		return
	}
	if !keyed && key != "" {
		terms = append(terms, key+direction(desc))
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(terms, ", "))
}

func (b *Builder) identity() string {
	if cols := b.projection.ColumnList(); len(cols) > 0 {
		return cols[0]
	}
	return ""
}

func direction(desc bool) string {
	if desc {
		return " DESC"
	}
	return " ASC"
}

func isNil(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
