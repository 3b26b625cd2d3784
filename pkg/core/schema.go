package core

import "strings"

// Attribute groups of a media class schema, in iteration order.
const (
	GroupDimensions = "Dimensions"
	GroupMetrics    = "Metrics"
)

// AttributeGroups is the fixed iteration order of column groups.
var AttributeGroups = []string{GroupDimensions, GroupMetrics}

// QualityCheck names one per-column quality measurement.
type QualityCheck string

// Built-in quality checks.
const (
	CheckNull      QualityCheck = "Null"
	CheckBlank     QualityCheck = "Blank"
	CheckUnique    QualityCheck = "Unique"
	CheckDuplicate QualityCheck = "Duplicate"

	userDefinedPrefix = "UserDefined:"
)

// UserDefinedCheck builds a check referencing a named expression.
func UserDefinedCheck(expression string) QualityCheck {
	return QualityCheck(userDefinedPrefix + expression)
}

// Expression returns the expression name of a UserDefined check.
func (q QualityCheck) Expression() (string, bool) {
	s := string(q)
	if !strings.HasPrefix(s, userDefinedPrefix) {
		return "", false
	}
	return strings.TrimPrefix(s, userDefinedPrefix), true
}

// ColumnSpec declares how one column is treated by the schema rules.
type ColumnSpec struct {
	Name    string
	Group   string
	Type    string
	Drop    bool
	Rename  string
	Quality []QualityCheck
}
