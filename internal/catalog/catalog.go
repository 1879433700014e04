package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/example/storefront/internal/domain/product"
	"gopkg.in/yaml.v3"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateID     = errors.New("duplicate product id")
)

//go:embed seed.yaml
var seed []byte

// entry is the file shape of one product; Type selects the variant.
type entry struct {
	Type                 product.Kind    `yaml:"type"`
	ID                   string          `yaml:"id"`
	Name                 string          `yaml:"name"`
	Brand                string          `yaml:"brand"`
	Price                int             `yaml:"price"`
	MRP                  int             `yaml:"mrp"`
	Image                string          `yaml:"image"`
	RequiresPrescription bool            `yaml:"requiresPrescription"`
	Condition            string          `yaml:"condition"`
	PetType              product.PetType `yaml:"petType"`
	Rating               float64         `yaml:"rating"`
}

type file struct {
	Products []entry `yaml:"products"`
}

// Catalog is an immutable, externally supplied product list.
type Catalog struct {
	byID  map[string]product.Product
	order []product.Product
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(seed)
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in seed is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]product.Product, len(f.Products))}
	for i, e := range f.Products {
		p, err := e.product()
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		id := p.Common().ID
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		c.byID[id] = p
		c.order = append(c.order, p)
	}
	return c, nil
}

func (e entry) product() (product.Product, error) {
	base := product.Base{
		ID:    e.ID,
		Name:  e.Name,
		Brand: e.Brand,
		Price: e.Price,
		MRP:   e.MRP,
		Image: e.Image,
	}
	switch e.Type {
	case product.KindMedicine:
		return product.Medicine{Base: base, RequiresPrescription: e.RequiresPrescription, Condition: e.Condition}, nil
	case product.KindPet:
		return product.PetItem{Base: base, PetType: e.PetType, Rating: e.Rating}, nil
	default:
		return nil, fmt.Errorf("%w: %q", product.ErrUnknownKind, e.Type)
	}
}

func (c *Catalog) Get(id string) (product.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, nil
}

// List returns products in file order. An empty kind matches every product.
func (c *Catalog) List(kind product.Kind) []product.Product {
	out := make([]product.Product, 0, len(c.order))
	for _, p := range c.order {
		if kind == "" || p.Kind() == kind {
			out = append(out, p)
		}
	}
	return out
}
