package core

import "strings"

// Layer identifies one stage of the storage lineage.
type Layer string

// Layer codes. Source through Destination form the physical lineage;
// Read and Auto are request-only pseudo targets.
const (
	LayerSource      Layer = "DS"
	LayerLanding     Layer = "LZ"
	LayerRaw         Layer = "RZ"
	LayerBronze      Layer = "BL"
	LayerSilver      Layer = "SL"
	LayerGold        Layer = "GL"
	LayerDestination Layer = "DZ"
	LayerRead        Layer = "Read"
	LayerAuto        Layer = "Auto"
)

// AuditPrefix marks audit columns. They are excluded from content hashing
// and from deduplication over all columns.
const AuditPrefix = "Row_"

// Audit column names, in the order they are appended to a dataset.
const (
	ColumnInsertedOn = "Row_Inserted-On"
	ColumnInsertedBy = "Row_Inserted-By"
	ColumnUpdatedOn  = "Row_Updated-On"
	ColumnUpdatedBy  = "Row_Updated-By"
)

// AuditColumns lists the audit columns in their stable order.
var AuditColumns = []string{ColumnInsertedOn, ColumnInsertedBy, ColumnUpdatedOn, ColumnUpdatedBy}

// IsAuditColumn reports whether name carries the audit prefix.
func IsAuditColumn(name string) bool {
	return strings.HasPrefix(name, AuditPrefix)
}

// String returns the layer code.
func (l Layer) String() string {
	return string(l)
}

// IsPseudo reports whether the layer is a request-only target (Read or Auto).
func (l Layer) IsPseudo() bool {
	return l == LayerRead || l == LayerAuto
}

// ParseLayer matches s against the known layer codes ignoring case.
// Unknown values are returned verbatim so validation can report them.
func ParseLayer(s string) Layer {
	s = strings.TrimSpace(s)
	for _, l := range []Layer{
		LayerSource, LayerLanding, LayerRaw, LayerBronze, LayerSilver,
		LayerGold, LayerDestination, LayerRead, LayerAuto,
	} {
		if strings.EqualFold(s, string(l)) {
			return l
		}
	}
	return Layer(s)
}

// LayerStrings converts layers to their codes.
func LayerStrings(layers []Layer) []string {
	out := make([]string, len(layers))
	for i, l := range layers {
		out[i] = string(l)
	}
	return out
}
