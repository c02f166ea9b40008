package polyjuice

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ckbtypes "github.com/nervosnetwork/ckb-sdk-go/v2/types"
	ckbmol "github.com/nervosnetwork/ckb-sdk-go/v2/types/molecule"

	"github.com/RosaliaNienow/quaminventore/internal/molecule"
)

// addressMappingItemSize is the fixed size of an AddressMappingItem struct.
const addressMappingItemSize = 2 * common.AddressLength

// SerializeScript encodes s as a Molecule Script table.
func SerializeScript(s Script) ([]byte, error) {
	hashType, err := s.HashType.Byte()
	if err != nil {
		return nil, err
	}
	packed := ckbmol.NewScriptBuilder().
		CodeHash(molecule.Byte32(s.CodeHash)).
		HashType(ckbmol.NewByte(hashType)).
		Args(molecule.Bytes(s.Args)).
		Build()
	return packed.AsSlice(), nil
}

// DeserializeScript decodes a Molecule Script table.
func DeserializeScript(b []byte) (Script, error) {
	packed, err := ckbmol.ScriptFromSlice(b, false)
	if err != nil {
		return Script{}, fmt.Errorf("%w: script: %v", molecule.ErrMalformed, err)
	}
	var hashType HashType
	switch code := packed.HashType().AsSlice()[0]; code {
	case 0x00:
		hashType = HashTypeData
	case 0x01:
		hashType = HashTypeType
	default:
		return Script{}, fmt.Errorf("%w: unknown hash type %d", molecule.ErrMalformed, code)
	}
	return Script{
		CodeHash: common.BytesToHash(packed.CodeHash().AsSlice()),
		HashType: hashType,
		Args:     common.CopyBytes(packed.Args().RawData()),
	}, nil
}

// ScriptHash returns the blake2b hash of the serialized script.
func ScriptHash(s Script) (common.Hash, error) {
	if _, err := s.HashType.Byte(); err != nil {
		return common.Hash{}, err
	}
	script := &ckbtypes.Script{
		CodeHash: ckbtypes.Hash(s.CodeHash),
		HashType: ckbtypes.ScriptHashType(s.HashType),
		Args:     s.Args,
	}
	return common.Hash(script.Hash()), nil
}

// SerializeRawL2Transaction encodes tx as a Molecule RawL2Transaction table.
// Ids and nonce must fit in 32 bits.
func SerializeRawL2Transaction(tx RawL2Transaction) ([]byte, error) {
	from, err := packUint32Field("from_id", uint64(tx.FromID))
	if err != nil {
		return nil, err
	}
	to, err := packUint32Field("to_id", uint64(tx.ToID))
	if err != nil {
		return nil, err
	}
	nonce, err := packUint32Field("nonce", uint64(tx.Nonce))
	if err != nil {
		return nil, err
	}
	return molecule.PackTable(from, to, nonce, molecule.PackBytes(tx.Args)), nil
}

// DeserializeRawL2Transaction decodes a Molecule RawL2Transaction table.
func DeserializeRawL2Transaction(b []byte) (RawL2Transaction, error) {
	fields, err := molecule.UnpackTable(b, 4)
	if err != nil {
		return RawL2Transaction{}, err
	}
	var ids [3]uint32
	for i := range ids {
		if ids[i], err = molecule.UnpackUint32(fields[i]); err != nil {
			return RawL2Transaction{}, err
		}
	}
	args, err := molecule.UnpackBytes(fields[3])
	if err != nil {
		return RawL2Transaction{}, err
	}
	return RawL2Transaction{
		FromID: hexutil.Uint64(ids[0]),
		ToID:   hexutil.Uint64(ids[1]),
		Nonce:  hexutil.Uint64(ids[2]),
		Args:   args,
	}, nil
}

// SerializeL2Transaction encodes tx as a Molecule L2Transaction table.
func SerializeL2Transaction(tx L2Transaction) ([]byte, error) {
	raw, err := SerializeRawL2Transaction(tx.Raw)
	if err != nil {
		return nil, err
	}
	return molecule.PackTable(raw, molecule.PackBytes(tx.Signature)), nil
}

// DeserializeL2Transaction decodes a Molecule L2Transaction table.
func DeserializeL2Transaction(b []byte) (L2Transaction, error) {
	fields, err := molecule.UnpackTable(b, 2)
	if err != nil {
		return L2Transaction{}, err
	}
	raw, err := DeserializeRawL2Transaction(fields[0])
	if err != nil {
		return L2Transaction{}, err
	}
	sig, err := molecule.UnpackBytes(fields[1])
	if err != nil {
		return L2Transaction{}, err
	}
	return L2Transaction{Raw: raw, Signature: sig}, nil
}

// SerializeAddressMapping encodes items as a Molecule AddressMapping table.
func SerializeAddressMapping(items []AddressMappingItem) []byte {
	data := make([][]byte, len(items))
	for i, item := range items {
		b := make([]byte, 0, addressMappingItemSize)
		b = append(b, item.EthAddress.Bytes()...)
		data[i] = append(b, item.GwShortAddress.Bytes()...)
	}
	return molecule.PackTable(
		molecule.PackUint32(uint32(len(items))),
		molecule.PackFixVec(data...),
	)
}

// DeserializeAddressMapping decodes a Molecule AddressMapping table.
func DeserializeAddressMapping(b []byte) ([]AddressMappingItem, error) {
	fields, err := molecule.UnpackTable(b, 2)
	if err != nil {
		return nil, err
	}
	length, err := molecule.UnpackUint32(fields[0])
	if err != nil {
		return nil, err
	}
	raw, err := molecule.UnpackFixVec(fields[1], addressMappingItemSize)
	if err != nil {
		return nil, err
	}
	if int(length) != len(raw) {
		return nil, fmt.Errorf("%w: mapping length %d, %d items", molecule.ErrMalformed, length, len(raw))
	}
	items := make([]AddressMappingItem, len(raw))
	for i, r := range raw {
		items[i] = AddressMappingItem{
			EthAddress:     common.BytesToAddress(r[:common.AddressLength]),
			GwShortAddress: common.BytesToAddress(r[common.AddressLength:]),
		}
	}
	return items, nil
}

// SerializeRawL2TransactionWithAddressMapping encodes the unsigned envelope.
func SerializeRawL2TransactionWithAddressMapping(tx RawL2TransactionWithAddressMapping) ([]byte, error) {
	raw, err := SerializeRawL2Transaction(tx.RawTx)
	if err != nil {
		return nil, err
	}
	return molecule.PackTable(raw, SerializeAddressMapping(tx.Addresses), molecule.PackBytes(tx.Extra)), nil
}

// DeserializeRawL2TransactionWithAddressMapping decodes the unsigned envelope.
func DeserializeRawL2TransactionWithAddressMapping(b []byte) (RawL2TransactionWithAddressMapping, error) {
	var out RawL2TransactionWithAddressMapping
	fields, err := molecule.UnpackTable(b, 3)
	if err != nil {
		return out, err
	}
	if out.RawTx, err = DeserializeRawL2Transaction(fields[0]); err != nil {
		return out, err
	}
	if out.Addresses, err = DeserializeAddressMapping(fields[1]); err != nil {
		return out, err
	}
	if out.Extra, err = molecule.UnpackBytes(fields[2]); err != nil {
		return out, err
	}
	return out, nil
}

// SerializeL2TransactionWithAddressMapping encodes the signed envelope.
func SerializeL2TransactionWithAddressMapping(tx L2TransactionWithAddressMapping) ([]byte, error) {
	signed, err := SerializeL2Transaction(tx.Tx)
	if err != nil {
		return nil, err
	}
	return molecule.PackTable(signed, SerializeAddressMapping(tx.Addresses), molecule.PackBytes(tx.Extra)), nil
}

// DeserializeL2TransactionWithAddressMapping decodes the signed envelope.
func DeserializeL2TransactionWithAddressMapping(b []byte) (L2TransactionWithAddressMapping, error) {
	var out L2TransactionWithAddressMapping
	fields, err := molecule.UnpackTable(b, 3)
	if err != nil {
		return out, err
	}
	if out.Tx, err = DeserializeL2Transaction(fields[0]); err != nil {
		return out, err
	}
	if out.Addresses, err = DeserializeAddressMapping(fields[1]); err != nil {
		return out, err
	}
	if out.Extra, err = molecule.UnpackBytes(fields[2]); err != nil {
		return out, err
	}
	return out, nil
}

func packUint32Field(field string, v uint64) ([]byte, error) {
	if v > math.MaxUint32 {
		return nil, &RangeError{Field: field, Value: new(big.Int).SetUint64(v), Bits: 32}
	}
	return molecule.PackUint32(uint32(v)), nil
}
