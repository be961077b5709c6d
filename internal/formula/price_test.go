package formula

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceList struct {
	name    string
	amounts map[uint32]int64
}

func (l priceList) Name() string { return l.name }

func (l priceList) Amount(pk uint32) (int64, bool) {
	a, ok := l.amounts[pk]
	return a, ok
}

func bound(v int64) *int64 { return &v }

func TestPriceTermination_FirstListSells(t *testing.T) {
	vip := priceList{"vip", map[uint32]int64{1: 500, 2: 5000}}
	basic := priceList{"basic", map[uint32]int64{1: 1000, 2: 1000, 3: 1000, 4: 9000}}
	delegate := mustOr(t, constant(1, 1, 2), constant(2, 1, 2, 3, 4))

	tests := []struct {
		name      string
		lists     []PriceAmounts
		predicate PricePredicate
		want      []uint32
	}{
		{"open", []PriceAmounts{vip, basic}, PricePredicate{}, []uint32{1, 2, 3, 4}},
		{"upper bound", []PriceAmounts{vip, basic}, PricePredicate{To: bound(1000)}, []uint32{1, 3}},
		{"lower bound", []PriceAmounts{vip, basic}, PricePredicate{From: bound(1000)}, []uint32{2, 3, 4}},
		{"both bounds", []PriceAmounts{basic, vip}, PricePredicate{From: bound(1000), To: bound(1000)}, []uint32{1, 2, 3}},
		{"lower priority price is ignored", []PriceAmounts{vip, basic}, PricePredicate{From: bound(900), To: bound(1100)}, []uint32{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewPriceTermination(delegate, "EUR", tt.lists, tt.predicate)
			r, err := f.Compute(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.ToArray())
		})
	}
}

func TestPriceTermination_Metadata(t *testing.T) {
	vip := priceList{name: "vip"}
	basic := priceList{name: "basic"}
	delegate := constant(7, 1, 2, 3)

	a := NewPriceTermination(delegate, "EUR", []PriceAmounts{vip, basic}, PricePredicate{To: bound(10)})
	b := NewPriceTermination(delegate, "EUR", []PriceAmounts{vip, basic}, PricePredicate{To: bound(10)})
	swapped := NewPriceTermination(delegate, "EUR", []PriceAmounts{basic, vip}, PricePredicate{To: bound(10)})
	other := NewPriceTermination(delegate, "EUR", []PriceAmounts{vip, basic}, PricePredicate{To: bound(11)})

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), swapped.Hash(), "price list priority is part of the hash")
	assert.NotEqual(t, a.Hash(), other.Hash())
	assert.Equal(t, []uint64{7}, a.TransactionalIDs())
	assert.Equal(t, KindPriceTermination, a.Kind())
	assert.Equal(t, 3, a.EstimatedCardinality())
	assert.Equal(t, "PRICE EUR [*, 10] IN vip, basic", a.String())

	c, err := a.CloneWithInnerFormulas(constant(8, 1))
	require.NoError(t, err)
	assert.Equal(t, a.Predicate(), c.(*PriceTerminationFormula).Predicate())

	_, err = a.CloneWithInnerFormulas()
	assert.ErrorIs(t, err, ErrInvalidArity)
}

func TestPriceTermination_Canceled(t *testing.T) {
	pks := make([]uint32, 4096)
	amounts := make(map[uint32]int64, len(pks))
	for i := range pks {
		pks[i] = uint32(i)
		amounts[uint32(i)] = int64(i)
	}
	f := NewPriceTermination(constant(1, pks...), "EUR", []PriceAmounts{priceList{"basic", amounts}}, PricePredicate{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Compute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
