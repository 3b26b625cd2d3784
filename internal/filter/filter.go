// Package filter builds a row predicate from a filter rule and applies it to
// a dataset.
//
// A rule maps a logical operator (AND, OR) to comparison operators, each
// mapping column names to literal values. Every (column, value) pair yields
// one comparison. Comparisons are folded left to right in declaration order
// with the logical operator of the group they belong to, so
//
//	OR:  {"==": {city: [A, B]}}
//	AND: {">":  {amount: [10]}}
//
// becomes ((city = 'A' OR city = 'B') AND amount > 10). There is no operator
// precedence; groups combine in the order they are encountered.
package filter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Comparison operators.
const (
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
)

var sqlOps = map[string]string{
	OpEqual:        "=",
	OpNotEqual:     "<>",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpLess:         "<",
	OpLessEqual:    "<=",
}

// Expression is a composed predicate.
type Expression struct {
	// SQL is the predicate in dataset engine syntax, fully parenthesised.
	SQL string
	// Display is the human-readable form, e.g. "city == A OR city == B".
	Display string
	// Terms is the number of comparisons folded into the expression.
	Terms int
}

// Empty reports whether no comparison was emitted.
func (e Expression) Empty() bool {
	return e.Terms == 0
}

// Build composes the predicate of rule. Columns not in present are skipped.
// An unknown logical or comparison operator is a configuration error.
func Build(rule config.FilterRule, present map[string]bool) (Expression, error) {
	var expr Expression
	for logical, comparisons := range rule.All() {
		joiner := strings.ToUpper(logical)
		if joiner != "AND" && joiner != "OR" {
			return Expression{}, core.InvalidValue(core.KindConfiguration,
				"unknown logical operator in filter", logical, []string{"AND", "OR"})
		}
		for op, columns := range comparisons.All() {
			sqlOp, ok := sqlOps[op]
			if !ok {
				return Expression{}, core.InvalidValue(core.KindConfiguration,
					"unknown comparison operator in filter", op, operators())
			}
			for column, values := range columns.All() {
				if !present[column] {
					continue
				}
				// a null value compares against NULL, an empty list emits nothing
				if values == nil {
					values = config.Values{nil}
				}
				for _, v := range values {
					sql, display := compare(column, op, sqlOp, v)
					if expr.Terms == 0 {
						expr.SQL = sql
						expr.Display = display
					} else {
						expr.SQL = fmt.Sprintf("(%s %s %s)", expr.SQL, joiner, sql)
						expr.Display = fmt.Sprintf("%s %s %s", expr.Display, joiner, display)
					}
					expr.Terms++
				}
			}
		}
	}
	return expr, nil
}

// Apply filters f by rule, updating the net and filtered row counts and the
// filter rendering in the response header. A rule that emits no comparison
// leaves the dataset untouched.
func Apply(ctx context.Context, f *dataset.Frame, rule config.FilterRule, rec *report.Recorder) (Expression, error) {
	if rule.Len() == 0 {
		return Expression{}, nil
	}
	names, err := f.ColumnNames(ctx)
	if err != nil {
		return Expression{}, core.WrapError(core.KindTransformFailed, err, "failed to list columns for filter")
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	expr, err := Build(rule, present)
	if err != nil {
		return Expression{}, err
	}
	if expr.Empty() {
		rec.Note(core.StageFilter, "", core.StatusSkipped, "no filter column exists in the dataset")
		return expr, nil
	}

	before, err := f.Count(ctx)
	if err != nil {
		return expr, core.WrapError(core.KindTransformFailed, err, "failed to count rows before filter")
	}
	if err := f.Filter(ctx, expr.SQL); err != nil {
		return expr, core.WrapError(core.KindTransformFailed, err, "failed to apply filter %s", expr.Display)
	}
	after, err := f.Count(ctx)
	if err != nil {
		return expr, core.WrapError(core.KindTransformFailed, err, "failed to count rows after filter")
	}

	resp := rec.Response()
	resp.Header.Filter = expr.Display
	resp.Schema.Rows.NetTotal = after
	resp.Schema.Rows.Filtered = before - after
	rec.Note(core.StageFilter, "", core.StatusSucceeded,
		fmt.Sprintf("WHERE %s removed %d rows, %d remain", expr.Display, before-after, after))
	return expr, nil
}

func compare(column, op, sqlOp string, v any) (string, string) {
	col := adapter.QuoteIdent(column)
	null := v == nil || v == "Null"

	switch op {
	case OpEqual:
		if null {
			return col + " IS NULL", column + " == Null"
		}
	case OpNotEqual:
		if null {
			return col + " IS NOT NULL", column + " != Null"
		}
	default:
		if v == "" {
			v = 0
		}
	}
	return fmt.Sprintf("%s %s %s", col, sqlOp, literal(v)), fmt.Sprintf("%s %s %s", column, op, display(v))
}

func literal(v any) string {
	switch t := v.(type) {
	case string:
		return adapter.QuoteString(t)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return adapter.QuoteString(fmt.Sprint(t))
	}
}

func display(v any) string {
	if v == "" {
		return "Blank"
	}
	return fmt.Sprint(v)
}

func operators() []string {
	return []string{OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual}
}
