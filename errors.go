package polyjuice

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Error categories. Every error returned by this package matches one of
// these (or an RPCError) with errors.Is.
var (
	// ErrValidation indicates a missing precondition or malformed input.
	ErrValidation = errors.New("polyjuice: validation failed")

	// ErrResolution indicates an address could not be resolved consistently.
	ErrResolution = errors.New("polyjuice: address resolution failed")

	// ErrTimeout indicates a bounded wait elapsed.
	ErrTimeout = errors.New("polyjuice: timed out")
)

// Sentinel errors for specific failure conditions.
var (
	// ErrMissingFrom indicates a send was requested without a sender.
	ErrMissingFrom = errors.New("polyjuice: tx.from is required to send a transaction")

	// ErrMissingSigner indicates a send was requested without a signing method.
	ErrMissingSigner = errors.New("polyjuice: signing method is required to send a transaction")

	// ErrMissingEstimator indicates gas estimation was requested without an execution method.
	ErrMissingEstimator = errors.New("polyjuice: estimate gas method is required")

	// ErrMissingGasLimit indicates argument encoding without a gas limit.
	ErrMissingGasLimit = errors.New("polyjuice: gas limit is required")

	// ErrInvalidAddress indicates an address that is not 20 bytes of hex.
	ErrInvalidAddress = errors.New("polyjuice: invalid eth address")

	// ErrInvalidHex indicates a value that is not a 0x-prefixed hex string.
	ErrInvalidHex = errors.New("polyjuice: invalid hex string")

	// ErrMalformedArgs indicates Polyjuice call arguments shorter than the header.
	ErrMalformedArgs = errors.New("polyjuice: malformed polyjuice args")

	// ErrNestedAddress indicates an address nested inside a tuple or array,
	// which the transcoder does not rewrite.
	ErrNestedAddress = errors.New("polyjuice: nested address parameters are not supported")

	// ErrMappingMismatch indicates an eth address whose derived short address
	// differs from the one it was looked up by.
	ErrMappingMismatch = errors.New("polyjuice: eth address does not match short address")

	// ErrMappingNotFound is returned by a MappingLookup that has no entry.
	ErrMappingNotFound = errors.New("polyjuice: address mapping not found")

	// ErrEmptyResult indicates an RPC method returned null where a value is required.
	ErrEmptyResult = errors.New("polyjuice: empty rpc result")
)

// ValidationError indicates an input field failed validation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("polyjuice: invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the validation category.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RangeError indicates a numeric value that does not fit its encoding width.
type RangeError struct {
	Field string
	Value *big.Int
	Bits  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("polyjuice: %s %s out of range for u%d", e.Field, e.Value, e.Bits)
}

// Is reports whether target is the validation category.
func (e *RangeError) Is(target error) bool {
	return target == ErrValidation
}

// ResolutionError indicates an address lookup failed or was inconsistent.
type ResolutionError struct {
	Address common.Address
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("polyjuice: resolve %s: %v", e.Address.Hex(), e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the resolution category.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// RPCError wraps a transport or JSON-RPC level failure.
type RPCError struct {
	Method string
	Err    error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("polyjuice: rpc %s: %v", e.Method, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates a transaction was not observed within the wait timeout.
// It does not distinguish a rejected transaction from a pending one.
type TimeoutError struct {
	TxHash  common.Hash
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("polyjuice: transaction %s not found within %s", e.TxHash.Hex(), e.Timeout)
}

// Is reports whether target is the timeout category.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
