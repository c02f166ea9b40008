package polyjuice

import (
	"github.com/ethereum/go-ethereum/common"
)

// AddressMapping collects address correspondences discovered while
// transcoding one payload. Items keep first-seen order and are unique by
// Ethereum address and by short address.
type AddressMapping struct {
	items     []AddressMappingItem
	seen      map[common.Address]int
	seenShort map[common.Address]struct{}
}

// NewAddressMapping creates an empty mapping.
func NewAddressMapping() *AddressMapping {
	return &AddressMapping{
		items:     make([]AddressMappingItem, 0),
		seen:      make(map[common.Address]int),
		seenShort: make(map[common.Address]struct{}),
	}
}

// Add records eth -> short. It returns false if either address was already
// recorded, in which case the first correspondence is kept.
func (m *AddressMapping) Add(eth, short common.Address) bool {
	if _, exists := m.seen[eth]; exists {
		return false
	}
	if _, exists := m.seenShort[short]; exists {
		return false
	}
	m.seen[eth] = len(m.items)
	m.seenShort[short] = struct{}{}
	m.items = append(m.items, AddressMappingItem{EthAddress: eth, GwShortAddress: short})
	return true
}

// Lookup returns the short address recorded for eth.
func (m *AddressMapping) Lookup(eth common.Address) (common.Address, bool) {
	i, ok := m.seen[eth]
	if !ok {
		return common.Address{}, false
	}
	return m.items[i].GwShortAddress, true
}

// Len returns the number of items.
func (m *AddressMapping) Len() int {
	return len(m.items)
}

// Items returns a copy of the recorded items in insertion order.
func (m *AddressMapping) Items() []AddressMappingItem {
	out := make([]AddressMappingItem, len(m.items))
	copy(out, m.items)
	return out
}

// Serialize encodes the mapping as a Molecule AddressMapping table.
func (m *AddressMapping) Serialize() []byte {
	return SerializeAddressMapping(m.items)
}
