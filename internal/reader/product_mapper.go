package reader

import (
	"errors"
	"fmt"

	"github.com/DjordjeVuckovic/product-stream/internal/apperr"
	"github.com/DjordjeVuckovic/product-stream/internal/domain"
)

var errNullValue = errors.New("unexpected NULL")

const (
	colID = iota
	colDesignation
	colStock
	colPictureURL
	colBlueprintURL
	colWeight
	colVolume
	colObsolete
)

// ProductMapper maps rows laid out as domain.ProductColumns.
type ProductMapper struct{}

func NewProductMapper() *ProductMapper {
	return &ProductMapper{}
}

func (m *ProductMapper) Map(row RawRow) (domain.Product, error) {
	if len(row) < len(domain.ProductColumns) {
		return domain.Product{}, apperr.NewMalformedRow(-1, domain.ProductColumns[len(row)],
			fmt.Errorf("row has %d columns, expected %d", len(row), len(domain.ProductColumns)))
	}

	var (
		p   domain.Product
		err error
	)
	if p.ID, err = asInt64(row[colID]); err != nil {
		return domain.Product{}, malformed(colID, err)
	}
	if p.Designation, err = asString(row[colDesignation]); err != nil {
		return domain.Product{}, malformed(colDesignation, err)
	}
	if p.Stock, err = asInt32(row[colStock]); err != nil {
		return domain.Product{}, malformed(colStock, err)
	}
	if p.PictureURL, err = asOptionalString(row[colPictureURL]); err != nil {
		return domain.Product{}, malformed(colPictureURL, err)
	}
	if p.BlueprintURL, err = asOptionalString(row[colBlueprintURL]); err != nil {
		return domain.Product{}, malformed(colBlueprintURL, err)
	}
	if p.Weight, err = asFloat64(row[colWeight]); err != nil {
		return domain.Product{}, malformed(colWeight, err)
	}
	if p.Volume, err = asFloat64(row[colVolume]); err != nil {
		return domain.Product{}, malformed(colVolume, err)
	}
	if p.Obsolete, err = asBool(row[colObsolete]); err != nil {
		return domain.Product{}, malformed(colObsolete, err)
	}

	return p, nil
}

// malformed leaves the position unset; the stage driving the mapper knows it.
func malformed(col int, err error) error {
	return apperr.NewMalformedRow(-1, domain.ProductColumns[col], err)
}
