package derive

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/pkg/adapter"
)

// Built-in derivation kinds.
const (
	KindDivide          = "divide"
	KindSplit           = "split"
	KindConcatSeparator = "concat_separator"
	KindReplace         = "replace"
)

func init() {
	Register(KindDivide, StrategyFunc(divide))
	Register(KindSplit, StrategyFunc(split))
	Register(KindConcatSeparator, StrategyFunc(concatSeparator))
	Register(KindReplace, StrategyFunc(replace))
}

// divide computes numerator / denominator as FLOAT; a zero denominator
// yields NULL.
func divide(d config.Derivation) (string, []string, error) {
	if d.Numerator == "" || d.Denominator == "" {
		return "", nil, fmt.Errorf("divide %s: numerator and denominator are required", d.Column)
	}
	expr := fmt.Sprintf("CAST(CAST(%s AS DOUBLE) / NULLIF(CAST(%s AS DOUBLE), 0) AS FLOAT)",
		adapter.QuoteIdent(d.Numerator), adapter.QuoteIdent(d.Denominator))
	return expr, []string{d.Numerator, d.Denominator}, nil
}

// split takes the zero-based Index-th token of Source split on Delimiter.
// A missing token yields NULL.
func split(d config.Derivation) (string, []string, error) {
	src := source(d)
	if src == "" || d.Delimiter == "" {
		return "", nil, fmt.Errorf("split %s: source and delimiter are required", d.Column)
	}
	if d.Index < 0 {
		return "", nil, fmt.Errorf("split %s: index must not be negative", d.Column)
	}
	expr := fmt.Sprintf("list_extract(string_split(CAST(%s AS VARCHAR), %s), %d)",
		adapter.QuoteIdent(src), adapter.QuoteString(d.Delimiter), d.Index+1)
	return expr, []string{src}, nil
}

// concatSeparator joins one-based [start, length] substrings of Source with
// Separator, e.g. 20250131 with "-" and [[1,4],[5,2],[7,2]] gives 2025-01-31.
func concatSeparator(d config.Derivation) (string, []string, error) {
	src := source(d)
	if src == "" || len(d.Segments) == 0 {
		return "", nil, fmt.Errorf("concat_separator %s: source and segments are required", d.Column)
	}
	text := fmt.Sprintf("CAST(%s AS VARCHAR)", adapter.QuoteIdent(src))
	parts := make([]string, len(d.Segments))
	for i, seg := range d.Segments {
		if seg[0] < 1 || seg[1] < 1 {
			return "", nil, fmt.Errorf("concat_separator %s: segment %v must be positive", d.Column, seg)
		}
		parts[i] = fmt.Sprintf("substring(%s, %d, %d)", text, seg[0], seg[1])
	}
	expr := fmt.Sprintf("concat_ws(%s, %s)", adapter.QuoteString(d.Separator), strings.Join(parts, ", "))
	return expr, []string{src}, nil
}

// replace substitutes every match of Pattern in Source with Replacement.
func replace(d config.Derivation) (string, []string, error) {
	src := source(d)
	if src == "" || d.Pattern == "" {
		return "", nil, fmt.Errorf("replace %s: source and pattern are required", d.Column)
	}
	expr := fmt.Sprintf("regexp_replace(CAST(%s AS VARCHAR), %s, %s, 'g')",
		adapter.QuoteIdent(src), adapter.QuoteString(d.Pattern), adapter.QuoteString(d.Replacement))
	return expr, []string{src}, nil
}

func source(d config.Derivation) string {
	if d.Source != "" {
		return d.Source
	}
	return d.Column
}
