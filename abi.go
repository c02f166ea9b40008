package polyjuice

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// SelectorSize is the length of a function selector.
const SelectorSize = 4

// ABI is the set of contract methods the transcoder knows about. Only
// methods with an address-typed input or output are tracked; every other
// payload passes through untouched.
type ABI struct {
	abi        abi.ABI
	interested map[[SelectorSize]byte]*abi.Method
}

// NewABI wraps a parsed contract ABI.
func NewABI(contractABI abi.ABI) *ABI {
	a := &ABI{
		abi:        contractABI,
		interested: make(map[[SelectorSize]byte]*abi.Method),
	}
	for name := range contractABI.Methods {
		method := contractABI.Methods[name]
		if !hasAddressArgument(method.Inputs) && !hasAddressArgument(method.Outputs) {
			continue
		}
		var selector [SelectorSize]byte
		copy(selector[:], method.ID)
		a.interested[selector] = &method
	}
	return a
}

// ParseABI parses a JSON ABI definition.
func ParseABI(definition string) (*ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		return nil, &ValidationError{Field: "abi", Err: err}
	}
	return NewABI(parsed), nil
}

// MustParseABI is like ParseABI but panics on error.
func MustParseABI(definition string) *ABI {
	a, err := ParseABI(definition)
	if err != nil {
		panic(err)
	}
	return a
}

// Raw returns the wrapped go-ethereum ABI.
func (a *ABI) Raw() abi.ABI {
	return a.abi
}

// Match returns the tracked method whose selector prefixes payload.
// A nil ABI never matches.
func (a *ABI) Match(payload []byte) (*abi.Method, bool) {
	if a == nil || len(payload) < SelectorSize {
		return nil, false
	}
	var selector [SelectorSize]byte
	copy(selector[:], payload[:SelectorSize])
	method, ok := a.interested[selector]
	return method, ok
}

// InterestedMethods returns the tracked methods sorted by name.
func (a *ABI) InterestedMethods() []*abi.Method {
	methods := make([]*abi.Method, 0, len(a.interested))
	for _, m := range a.interested {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})
	return methods
}

// AddressInputs returns the indices of the top-level address or address[]
// inputs of method.
func AddressInputs(method *abi.Method) []int {
	return addressIndices(method.Inputs)
}

// AddressOutputs returns the indices of the top-level address or address[]
// outputs of method.
func AddressOutputs(method *abi.Method) []int {
	return addressIndices(method.Outputs)
}

func addressIndices(args abi.Arguments) []int {
	var out []int
	for i, arg := range args {
		if isTopLevelAddress(arg.Type) {
			out = append(out, i)
		}
	}
	return out
}

func hasAddressArgument(args abi.Arguments) bool {
	for _, arg := range args {
		if containsAddress(arg.Type) {
			return true
		}
	}
	return false
}

// isTopLevelAddress reports whether t is address or address[].
func isTopLevelAddress(t abi.Type) bool {
	if t.T == abi.AddressTy {
		return true
	}
	return t.T == abi.SliceTy && t.Elem != nil && t.Elem.T == abi.AddressTy
}

// containsAddress reports whether t is or contains an address anywhere.
func containsAddress(t abi.Type) bool {
	switch t.T {
	case abi.AddressTy:
		return true
	case abi.SliceTy, abi.ArrayTy:
		return t.Elem != nil && containsAddress(*t.Elem)
	case abi.TupleTy:
		for _, elem := range t.TupleElems {
			if containsAddress(*elem) {
				return true
			}
		}
	}
	return false
}
