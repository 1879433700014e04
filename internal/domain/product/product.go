package product

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates the Product variants on the wire.
type Kind string

const (
	KindMedicine Kind = "medicine"
	KindPet      Kind = "pet"
)

type PetType string

const (
	PetDog PetType = "Dog"
	PetCat PetType = "Cat"
)

var (
	ErrInvalidID      = errors.New("product id is required")
	ErrInvalidPrice   = errors.New("price must not be negative")
	ErrMRPBelowPrice  = errors.New("mrp must be greater than or equal to price")
	ErrInvalidRating  = errors.New("rating must be between 0 and 5")
	ErrInvalidPetType = errors.New("pet type must be Dog or Cat")
	ErrUnknownKind    = errors.New("unknown product type")
)

// Product is a read-only catalog entry. The set of variants is closed:
// only Medicine and PetItem implement it.
type Product interface {
	Common() Base
	Kind() Kind
	Validate() error
	isProduct()
}

// Base holds the fields every variant carries. Prices are integer currency units.
type Base struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Brand string `json:"brand"`
	Price int    `json:"price"`
	MRP   int    `json:"mrp"`
	Image string `json:"image"`
}

func (b Base) Common() Base { return b }

// DiscountPercent is the rounded-down saving against the list price.
func (b Base) DiscountPercent() int {
	if b.MRP <= 0 || b.MRP <= b.Price {
		return 0
	}
	return (b.MRP - b.Price) * 100 / b.MRP
}

func (b Base) validate() error {
	if b.ID == "" {
		return ErrInvalidID
	}
	if b.Price < 0 {
		return ErrInvalidPrice
	}
	if b.MRP < b.Price {
		return fmt.Errorf("%w: %s", ErrMRPBelowPrice, b.ID)
	}
	return nil
}

type Medicine struct {
	Base
	RequiresPrescription bool   `json:"requiresPrescription"`
	Condition            string `json:"condition"`
}

func (Medicine) Kind() Kind { return KindMedicine }
func (Medicine) isProduct() {}

func (m Medicine) Validate() error {
	return m.Base.validate()
}

func (m Medicine) MarshalJSON() ([]byte, error) {
	type alias Medicine
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{Type: KindMedicine, alias: alias(m)})
}

type PetItem struct {
	Base
	PetType PetType `json:"petType"`
	Rating  float64 `json:"rating"`
}

func (PetItem) Kind() Kind { return KindPet }
func (PetItem) isProduct() {}

func (p PetItem) Validate() error {
	if err := p.Base.validate(); err != nil {
		return err
	}
	if p.PetType != PetDog && p.PetType != PetCat {
		return fmt.Errorf("%w: %q", ErrInvalidPetType, p.PetType)
	}
	if p.Rating < 0 || p.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

func (p PetItem) MarshalJSON() ([]byte, error) {
	type alias PetItem
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{Type: KindPet, alias: alias(p)})
}

// Unmarshal decodes a product document, picking the variant from its "type" field.
func Unmarshal(data []byte) (Product, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case KindMedicine:
		var m Medicine
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case KindPet:
		var p PetItem
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, head.Type)
	}
}
