package rules

import "strings"

// FallbackType is used for type tags the engine does not recognise.
const FallbackType = "VARCHAR"

var typeTags = map[string]string{
	"integer":       "INTEGER",
	"long":          "BIGINT",
	"float":         "FLOAT",
	"double":        "DOUBLE",
	"boolean":       "BOOLEAN",
	"byte":          "TINYINT",
	"short":         "SMALLINT",
	"binary":        "BLOB",
	"date":          "DATE",
	"timestamp":     "TIMESTAMP",
	"timestamp_ntz": "TIMESTAMP",
	"string":        "VARCHAR",
}

// SQLType maps a semantic type tag to a dataset engine type. Unknown tags
// map to FallbackType and report false.
func SQLType(tag string) (string, bool) {
	if t, ok := typeTags[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return t, true
	}
	return FallbackType, false
}
