package polyjuice

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ForwardResolver maps an Ethereum address to its short address.
type ForwardResolver func(ctx context.Context, eth common.Address) (ShortAddress, error)

// ReverseResolver maps a short address back to its Ethereum address.
type ReverseResolver func(ctx context.Context, short common.Address) (common.Address, error)

// TranscodeInputs rewrites the top-level address and address[] inputs of a
// call payload to short addresses and records every correspondence. All
// other fields are re-encoded unchanged. Without address inputs the payload
// is returned as is with an empty mapping.
func TranscodeInputs(ctx context.Context, payload []byte, method *abi.Method, resolve ForwardResolver) ([]byte, *AddressMapping, error) {
	mapping := NewAddressMapping()
	if err := checkNestedAddresses(method.Name, method.Inputs); err != nil {
		return nil, nil, err
	}
	indices := addressIndices(method.Inputs)
	if len(indices) == 0 {
		return payload, mapping, nil
	}
	if len(payload) < SelectorSize {
		return nil, nil, &ValidationError{Field: "data", Err: fmt.Errorf("payload shorter than selector")}
	}

	values, err := method.Inputs.Unpack(payload[SelectorSize:])
	if err != nil {
		return nil, nil, &ValidationError{Field: "data", Err: fmt.Errorf("decode %s inputs: %w", method.Name, err)}
	}

	forward := func(eth common.Address) (common.Address, error) {
		short, err := resolve(ctx, eth)
		if err != nil {
			return common.Address{}, err
		}
		mapping.Add(eth, short.Value)
		return short.Value, nil
	}

	for _, i := range indices {
		if values[i], err = rewriteAddressValue(values[i], forward); err != nil {
			return nil, nil, err
		}
	}

	packed, err := method.Inputs.Pack(values...)
	if err != nil {
		return nil, nil, &ValidationError{Field: "data", Err: fmt.Errorf("encode %s inputs: %w", method.Name, err)}
	}
	out := make([]byte, 0, SelectorSize+len(packed))
	out = append(out, method.ID...)
	return append(out, packed...), mapping, nil
}

// TranscodeOutputs rewrites the top-level address and address[] outputs of
// return data back to Ethereum addresses. Empty return data and methods
// without address outputs pass through unchanged.
func TranscodeOutputs(ctx context.Context, payload []byte, method *abi.Method, resolve ReverseResolver) ([]byte, error) {
	if err := checkNestedAddresses(method.Name, method.Outputs); err != nil {
		return nil, err
	}
	indices := addressIndices(method.Outputs)
	if len(indices) == 0 || len(payload) == 0 {
		return payload, nil
	}

	values, err := method.Outputs.Unpack(payload)
	if err != nil {
		return nil, &ValidationError{Field: "return data", Err: fmt.Errorf("decode %s outputs: %w", method.Name, err)}
	}

	reverse := func(short common.Address) (common.Address, error) {
		return resolve(ctx, short)
	}
	for _, i := range indices {
		if values[i], err = rewriteAddressValue(values[i], reverse); err != nil {
			return nil, err
		}
	}

	packed, err := method.Outputs.Pack(values...)
	if err != nil {
		return nil, &ValidationError{Field: "return data", Err: fmt.Errorf("encode %s outputs: %w", method.Name, err)}
	}
	return packed, nil
}

func rewriteAddressValue(v any, fn func(common.Address) (common.Address, error)) (any, error) {
	switch val := v.(type) {
	case common.Address:
		return fn(val)
	case []common.Address:
		out := make([]common.Address, len(val))
		for i, addr := range val {
			rewritten, err := fn(addr)
			if err != nil {
				return nil, err
			}
			out[i] = rewritten
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected address value of type %T", v)
	}
}

// checkNestedAddresses rejects addresses inside tuples, fixed arrays or
// nested slices, which are not rewritten.
func checkNestedAddresses(name string, args abi.Arguments) error {
	for _, arg := range args {
		if isTopLevelAddress(arg.Type) || !containsAddress(arg.Type) {
			continue
		}
		return &ValidationError{
			Field: fmt.Sprintf("%s.%s (%s)", name, arg.Name, arg.Type.String()),
			Err:   ErrNestedAddress,
		}
	}
	return nil
}
