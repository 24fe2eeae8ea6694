package dto

// ImportRosterRequest supplies roster text inline or as an object key in the import bucket.
type ImportRosterRequest struct {
	Text      string `json:"text"`
	ObjectKey string `json:"objectKey"`
	Mode      string `json:"mode" validate:"omitempty,oneof=merge replace"`
}
