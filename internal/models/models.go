package models

// ImageStatus tracks where an uploaded label is in the extraction lifecycle
type ImageStatus string

const (
	StatusPending    ImageStatus = "pending"
	StatusProcessing ImageStatus = "processing"
	StatusExtracted  ImageStatus = "extracted"
	StatusFailed     ImageStatus = "failed"
)

// Image is a raw image payload with its declared media type
type Image struct {
	Data      []byte `json:"-"`
	MediaType string `json:"media_type"`
}

// ImageItem represents an uploaded label image
type ImageItem struct {
	ID       string      `json:"id"`
	Filename string      `json:"filename"`
	Image    Image       `json:"image"`
	Size     int         `json:"size"`
	Status   ImageStatus `json:"status"`
}

// MissingPlaceholder is rendered for a column a record does not carry
const MissingPlaceholder = ""

// Canonical field names used by blank and manual records
const (
	FieldChemicalName    = "Chemical Name"
	FieldCASNumber       = "CAS Number"
	FieldFormula         = "Formula"
	FieldConcentration   = "Concentration"
	FieldLotNumber       = "Lot Number"
	FieldManufacturer    = "Manufacturer"
	FieldMolecularWeight = "Molecular Weight"
	FieldCommonUses      = "Common Uses"
)

// CanonicalFields is the default inventory schema, in display order
var CanonicalFields = []string{
	FieldChemicalName,
	FieldCASNumber,
	FieldFormula,
	FieldConcentration,
	FieldLotNumber,
	FieldManufacturer,
}

// LookupFields is the field set requested when resolving a chemical without an image
var LookupFields = []string{
	FieldChemicalName,
	FieldCASNumber,
	FieldFormula,
	FieldMolecularWeight,
	FieldCommonUses,
}
