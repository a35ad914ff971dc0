package domain

// Product is the record moved by the import pipeline. One Product is built
// from exactly one source row.
type Product struct {
	ID           int64   `json:"id"`
	Designation  string  `json:"designation"`
	Stock        int32   `json:"stock"`
	PictureURL   *string `json:"pictureUrl,omitempty"`
	BlueprintURL *string `json:"blueprintUrl,omitempty"`
	Weight       float64 `json:"weight"`
	Volume       float64 `json:"volume"`
	Obsolete     bool    `json:"obsolete"`
}

// ProductColumns lists the source columns in the positional order expected
// by the product mapper.
var ProductColumns = []string{
	"id",
	"designation",
	"stock",
	"picture_url",
	"blueprint_url",
	"weight",
	"volume",
	"obsolete",
}
