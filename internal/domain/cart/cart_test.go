package cart

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/example/storefront/internal/domain/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func medicine(id string, price int) product.Medicine {
	return product.Medicine{Base: product.Base{ID: id, Name: id, Price: price, MRP: price}, RequiresPrescription: true}
}

func petItem(id string, price int) product.PetItem {
	return product.PetItem{Base: product.Base{ID: id, Name: id, Price: price, MRP: price}, PetType: product.PetDog, Rating: 3}
}

func TestCart_AddIncrementsExistingLine(t *testing.T) {
	c := New()

	require.NoError(t, c.Add(medicine("A", 100)))
	require.NoError(t, c.Add(medicine("A", 100)))
	require.NoError(t, c.Add(petItem("B", 250)))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, c.QuantityOf("A"))
	assert.Equal(t, 450, c.Total())
	assert.Equal(t, 3, c.ItemCount())
}

func TestCart_AddRejectsInvalidProduct(t *testing.T) {
	c := New()

	assert.ErrorIs(t, c.Add(nil), ErrInvalidProduct)
	assert.ErrorIs(t, c.Add(medicine("", 1)), ErrInvalidProduct)
	assert.Zero(t, c.Len())
}

func TestCart_RemoveKeepsInsertionOrder(t *testing.T) {
	c := New()
	for _, p := range []product.Product{medicine("A", 1), petItem("B", 2), medicine("C", 3)} {
		require.NoError(t, c.Add(p))
	}

	c.Remove("B")

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "A", lines[0].ProductID())
	assert.Equal(t, "C", lines[1].ProductID())
}

func TestCart_LinesIsACopy(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(medicine("A", 100)))

	lines := c.Lines()
	lines[0].Quantity = 99

	assert.Equal(t, 1, c.QuantityOf("A"))
}

func TestCart_EmptyLinesIsNotNil(t *testing.T) {
	lines := New().Lines()

	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

// Random add/remove sequences keep the cart consistent with a simple model.
func TestCart_RandomSequencesMatchModel(t *testing.T) {
	products := []product.Product{medicine("A", 100), petItem("B", 250), medicine("C", 7)}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		c := New()
		model := map[string]int{}

		for step := 0; step < 200; step++ {
			p := products[rng.Intn(len(products))]
			id := p.Common().ID
			if rng.Intn(2) == 0 {
				require.NoError(t, c.Add(p))
				model[id]++
			} else {
				c.Remove(id)
				if model[id] > 0 {
					model[id]--
				}
			}

			count, total := 0, 0
			seen := map[string]bool{}
			for _, l := range c.Lines() {
				require.False(t, seen[l.ProductID()], "duplicate line for %s", l.ProductID())
				seen[l.ProductID()] = true
				require.Greater(t, l.Quantity, 0)
				count += l.Quantity
				total += l.Product.Common().Price * l.Quantity
			}
			for _, p := range products {
				id := p.Common().ID
				require.Equal(t, model[id], c.QuantityOf(id))
			}
			require.Equal(t, count, c.ItemCount())
			require.Equal(t, total, c.Total())
		}
	}
}

func TestCart_Subtract(t *testing.T) {
	tests := []struct {
		name     string
		cart     map[string]int
		snapshot map[string]int
		want     map[string]int
	}{
		{"exact snapshot empties", map[string]int{"A": 2, "B": 1}, map[string]int{"A": 2, "B": 1}, map[string]int{}},
		{"later additions survive", map[string]int{"A": 3, "B": 1}, map[string]int{"A": 2}, map[string]int{"A": 1, "B": 1}},
		{"removed meanwhile", map[string]int{"A": 1}, map[string]int{"A": 2, "B": 1}, map[string]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			for _, id := range []string{"A", "B"} {
				for i := 0; i < tt.cart[id]; i++ {
					require.NoError(t, c.Add(medicine(id, 10)))
				}
			}
			var snapshot []Line
			for _, id := range []string{"A", "B"} {
				if q := tt.snapshot[id]; q > 0 {
					snapshot = append(snapshot, Line{Product: medicine(id, 10), Quantity: q})
				}
			}

			c.Subtract(snapshot)

			for _, id := range []string{"A", "B"} {
				assert.Equal(t, tt.want[id], c.QuantityOf(id), id)
			}
		})
	}
}

func TestCart_DecrementBelowZeroPanics(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(medicine("A", 1)))

	assert.PanicsWithValue(t, "cart: invariant violated: line A would hold quantity -1", func() {
		c.decrement(0, 2)
	})
}

func TestLine_JSONKeepsVariant(t *testing.T) {
	in := []Line{
		{Product: medicine("A", 100), Quantity: 2},
		{Product: petItem("B", 250), Quantity: 1},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out []Line
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestLine_UnmarshalUnknownType(t *testing.T) {
	var l Line
	err := json.Unmarshal([]byte(`{"product":{"type":"lab","id":"x"},"quantity":1}`), &l)

	assert.ErrorIs(t, err, product.ErrUnknownKind)
}
