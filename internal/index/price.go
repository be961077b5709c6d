package index

import (
	"maps"
	"slices"
	"sync"

	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/hupe1980/evigo/model"
)

// PriceList is an immutable snapshot of the sellable prices of one price
// list in one currency.
type PriceList struct {
	name     string
	currency string
	pks      *bitmap.Base
	amounts  map[uint32]int64
}

// Name returns the price list name.
func (pl *PriceList) Name() string { return pl.name }

// Currency returns the currency of the prices.
func (pl *PriceList) Currency() string { return pl.currency }

// PrimaryKeys returns the entities with a sellable price in the list. Its
// transactional id is the snapshot version.
func (pl *PriceList) PrimaryKeys() bitmap.Bitmap { return pl.pks }

// Amount returns the price of pk.
func (pl *PriceList) Amount(pk uint32) (int64, bool) {
	a, ok := pl.amounts[pk]
	return a, ok
}

type priceListKey struct {
	list     string
	currency string
}

// PriceIndex holds the sellable prices of one scope grouped by price list
// and currency.
//
// Mutations replace the affected PriceList snapshots, so lists handed out to
// formulas never change.
type PriceIndex struct {
	mu      sync.RWMutex
	lists   map[priceListKey]*PriceList
	version uint64
}

// NewPriceIndex creates an empty price index.
func NewPriceIndex() *PriceIndex {
	return &PriceIndex{lists: make(map[priceListKey]*PriceList), version: NextVersion()}
}

// List returns the snapshot of priceList in currency.
func (pi *PriceIndex) List(priceList, currency string) (*PriceList, bool) {
	pi.mu.RLock()
	defer pi.mu.RUnlock()

	pl, ok := pi.lists[priceListKey{priceList, currency}]
	return pl, ok
}

// Version returns the version of the last change to any list. Structures
// that depend on a list that does not exist yet depend on this version.
func (pi *PriceIndex) Version() uint64 {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	return pi.version
}

// Set indexes the sellable prices of pk.
func (pi *PriceIndex) Set(pk uint32, prices []model.Price) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	for _, p := range prices {
		if !p.Sellable {
			continue
		}
		key := priceListKey{p.PriceList, p.Currency}
		old, ok := pi.lists[key]
		if !ok {
			old = &PriceList{name: p.PriceList, currency: p.Currency, pks: bitmap.New(0)}
		}
		amounts := maps.Clone(old.amounts)
		if amounts == nil {
			amounts = make(map[uint32]int64)
		}
		amounts[pk] = p.Amount
		pi.lists[key] = &PriceList{
			name:     old.name,
			currency: old.currency,
			pks:      withKey(old.pks, pk, true),
			amounts:  amounts,
		}
		pi.version = NextVersion()
	}
}

// Remove drops the sellable prices of pk.
func (pi *PriceIndex) Remove(pk uint32, prices []model.Price) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	for _, p := range prices {
		if !p.Sellable {
			continue
		}
		key := priceListKey{p.PriceList, p.Currency}
		old, ok := pi.lists[key]
		if !ok {
			continue
		}
		pks := withKey(old.pks, pk, false)
		if pks.IsEmpty() {
			delete(pi.lists, key)
		} else {
			amounts := maps.Clone(old.amounts)
			delete(amounts, pk)
			pi.lists[key] = &PriceList{name: old.name, currency: old.currency, pks: pks, amounts: amounts}
		}
		pi.version = NextVersion()
	}
}

// PriceLists returns the names of the lists holding prices in currency,
// sorted.
func (pi *PriceIndex) PriceLists(currency string) []string {
	pi.mu.RLock()
	defer pi.mu.RUnlock()

	var out []string
	for k := range pi.lists {
		if k.currency == currency {
			out = append(out, k.list)
		}
	}
	slices.Sort(out)
	return out
}
