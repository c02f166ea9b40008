package polyjuice

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/RosaliaNienow/quaminventore/internal/molecule"
)

// EmptyAbiItem is the sidecar marker for "no ABI item".
var EmptyAbiItem = []byte{}

// Field counts of the AbiItem and AbiParam tables.
const (
	abiItemFields  = 5
	abiParamFields = 3
)

var functionTypeNames = map[abi.FunctionType]string{
	abi.Function:    "function",
	abi.Constructor: "constructor",
	abi.Fallback:    "fallback",
	abi.Receive:     "receive",
}

// SerializeAbiItem encodes method as the compact descriptor carried in the
// transaction sidecar:
//
//	AbiItem  table {type, name, inputs, outputs, state_mutability}
//	AbiParam table {name, type, components}
//
// where every string is Bytes and inputs, outputs and components are
// dynvec<AbiParam>. A nil method encodes to EmptyAbiItem.
func SerializeAbiItem(method *abi.Method) []byte {
	if method == nil {
		return EmptyAbiItem
	}
	return molecule.PackTable(
		molecule.PackBytes([]byte(functionTypeNames[method.Type])),
		molecule.PackBytes([]byte(method.RawName)),
		packAbiParams(argumentMarshalings(method.Inputs)),
		packAbiParams(argumentMarshalings(method.Outputs)),
		molecule.PackBytes([]byte(stateMutability(method))),
	)
}

// DeserializeAbiItem decodes a descriptor produced by SerializeAbiItem.
// EmptyAbiItem decodes to a nil method.
func DeserializeAbiItem(b []byte) (*abi.Method, error) {
	if len(b) == 0 {
		return nil, nil
	}
	fields, err := molecule.UnpackTable(b, abiItemFields)
	if err != nil {
		return nil, err
	}
	strs := make([]string, 0, 3)
	for _, i := range []int{0, 1, 4} {
		s, err := molecule.UnpackBytes(fields[i])
		if err != nil {
			return nil, err
		}
		strs = append(strs, string(s))
	}
	typeName, name, mutability := strs[0], strs[1], strs[2]

	funType, ok := parseFunctionType(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown abi item type %q", molecule.ErrMalformed, typeName)
	}
	inputs, err := unpackArguments(fields[2])
	if err != nil {
		return nil, err
	}
	outputs, err := unpackArguments(fields[3])
	if err != nil {
		return nil, err
	}

	isConst := mutability == "view" || mutability == "pure"
	isPayable := mutability == "payable"
	method := abi.NewMethod(name, name, funType, mutability, isConst, isPayable, inputs, outputs)
	return &method, nil
}

func stateMutability(method *abi.Method) string {
	switch {
	case method.StateMutability != "":
		return method.StateMutability
	case method.Constant:
		return "view"
	case method.Payable:
		return "payable"
	default:
		return "nonpayable"
	}
}

func parseFunctionType(s string) (abi.FunctionType, bool) {
	for t, name := range functionTypeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

func argumentMarshalings(args abi.Arguments) []abi.ArgumentMarshaling {
	out := make([]abi.ArgumentMarshaling, len(args))
	for i, arg := range args {
		typ, components := typeMarshaling(arg.Type)
		out[i] = abi.ArgumentMarshaling{Name: arg.Name, Type: typ, Components: components}
	}
	return out
}

// typeMarshaling converts t back to its JSON form, spelling tuples as
// "tuple" with components.
func typeMarshaling(t abi.Type) (string, []abi.ArgumentMarshaling) {
	switch t.T {
	case abi.TupleTy:
		components := make([]abi.ArgumentMarshaling, len(t.TupleElems))
		for i, elem := range t.TupleElems {
			typ, sub := typeMarshaling(*elem)
			components[i] = abi.ArgumentMarshaling{Name: t.TupleRawNames[i], Type: typ, Components: sub}
		}
		return "tuple", components
	case abi.SliceTy:
		typ, components := typeMarshaling(*t.Elem)
		return typ + "[]", components
	case abi.ArrayTy:
		typ, components := typeMarshaling(*t.Elem)
		return fmt.Sprintf("%s[%d]", typ, t.Size), components
	default:
		return t.String(), nil
	}
}

func packAbiParams(params []abi.ArgumentMarshaling) []byte {
	items := make([][]byte, len(params))
	for i, p := range params {
		items[i] = molecule.PackTable(
			molecule.PackBytes([]byte(p.Name)),
			molecule.PackBytes([]byte(p.Type)),
			packAbiParams(p.Components),
		)
	}
	return molecule.PackDynVec(items...)
}

func unpackAbiParams(b []byte) ([]abi.ArgumentMarshaling, error) {
	items, err := molecule.UnpackDynVec(b)
	if err != nil {
		return nil, err
	}
	params := make([]abi.ArgumentMarshaling, len(items))
	for i, item := range items {
		fields, err := molecule.UnpackTable(item, abiParamFields)
		if err != nil {
			return nil, err
		}
		name, err := molecule.UnpackBytes(fields[0])
		if err != nil {
			return nil, err
		}
		typ, err := molecule.UnpackBytes(fields[1])
		if err != nil {
			return nil, err
		}
		components, err := unpackAbiParams(fields[2])
		if err != nil {
			return nil, err
		}
		if len(components) == 0 {
			components = nil
		}
		params[i] = abi.ArgumentMarshaling{Name: string(name), Type: string(typ), Components: components}
	}
	return params, nil
}

func unpackArguments(b []byte) (abi.Arguments, error) {
	params, err := unpackAbiParams(b)
	if err != nil {
		return nil, err
	}
	args := make(abi.Arguments, len(params))
	for i, p := range params {
		typ, err := abi.NewType(p.Type, "", p.Components)
		if err != nil {
			return nil, fmt.Errorf("%w: abi param %q: %v", molecule.ErrMalformed, p.Name, err)
		}
		args[i] = abi.Argument{Name: p.Name, Type: typ}
	}
	return args, nil
}
