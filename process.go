package polyjuice

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

// SigningFunc signs a 32-byte transaction message and returns a 65-byte
// (r, s, v) signature.
type SigningFunc func(ctx context.Context, message common.Hash) ([]byte, error)

// EstimateGasFunc runs gas estimation for an assembled transaction.
type EstimateGasFunc func(ctx context.Context, tx *RawL2Transaction) (uint64, error)

// Process selects how Provider.Process finishes a transaction.
// This is a sealed interface: only Send, Call and EstimateGas implement it.
type Process interface {
	// isProcess is unexported to seal the interface.
	isProcess()
}

// Send signs the transaction and returns its serialized wire form.
type Send struct {
	Sign        SigningFunc
	MessageType SigningMessageType
}

// Call executes the transaction read-only and returns its return data.
type Call struct{}

// EstimateGas returns the assembled transaction for the caller to estimate.
type EstimateGas struct {
	Execute EstimateGasFunc
}

func (Send) isProcess()        {}
func (Call) isProcess()        {}
func (EstimateGas) isProcess() {}

// Result is the outcome of Provider.Process. Exactly one field is set,
// depending on the process.
type Result struct {
	// SerializedTx is the L2TransactionWithAddressMapping of a Send.
	SerializedTx []byte

	// ReturnData is the return data of a Call, with short addresses
	// mapped back to Ethereum addresses.
	ReturnData []byte

	// RawTx is the unsigned transaction of an EstimateGas.
	RawTx *RawL2Transaction
}

// Provider turns Ethereum-shaped transactions into Godwoken transactions.
// It holds no per-transaction state and is safe for concurrent use;
// callers sending several transactions from one sender must serialize them.
type Provider struct {
	abi    *ABI
	gw     *Godwoker
	logger log.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets the provider logger.
func WithProviderLogger(logger log.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a Provider. A nil contractABI disables address
// transcoding.
func NewProvider(contractABI *ABI, gw *Godwoker, opts ...ProviderOption) *Provider {
	p := &Provider{
		abi:    contractABI,
		gw:     gw,
		logger: gw.logger.New("component", "provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs tx through the pipeline selected by process. Preconditions
// are checked before any request is made. It panics on an unknown process.
func (p *Provider) Process(ctx context.Context, tx EthTransaction, process Process) (*Result, error) {
	switch proc := process.(type) {
	case Send:
		if tx.From == "" {
			return nil, &ValidationError{Field: "from", Err: ErrMissingFrom}
		}
		if proc.Sign == nil {
			return nil, &ValidationError{Field: "signing method", Err: ErrMissingSigner}
		}
	case Call:
	case EstimateGas:
		if proc.Execute == nil {
			return nil, &ValidationError{Field: "estimate gas method", Err: ErrMissingEstimator}
		}
	default:
		panic(fmt.Sprintf("polyjuice: unknown process %T", process))
	}

	if tx.From == "" {
		tx.From = p.gw.config.DefaultFromAddress.Hex()
	}

	pre, err := p.prepare(ctx, tx)
	if err != nil {
		return nil, err
	}

	switch proc := process.(type) {
	case Send:
		serialized, err := p.sign(ctx, pre, proc)
		if err != nil {
			return nil, err
		}
		return &Result{SerializedTx: serialized}, nil

	case Call:
		ret, err := p.call(ctx, pre)
		if err != nil {
			return nil, err
		}
		return &Result{ReturnData: ret}, nil

	default:
		return &Result{RawTx: pre.raw}, nil
	}
}

// BuildSendTransaction signs tx and returns the serialized transaction with
// its address-mapping sidecar, ready for poly_submitL2Transaction.
func (p *Provider) BuildSendTransaction(ctx context.Context, tx EthTransaction, sign SigningFunc, msgType SigningMessageType) ([]byte, error) {
	res, err := p.Process(ctx, tx, Send{Sign: sign, MessageType: msgType})
	if err != nil {
		return nil, err
	}
	return res.SerializedTx, nil
}

// SendTransaction builds, signs and submits tx, returning its hash.
func (p *Provider) SendTransaction(ctx context.Context, tx EthTransaction, sign SigningFunc, msgType SigningMessageType) (common.Hash, error) {
	serialized, err := p.BuildSendTransaction(ctx, tx, sign, msgType)
	if err != nil {
		return common.Hash{}, err
	}
	return p.gw.client.PolySubmitSerializedL2Transaction(ctx, serialized)
}

// ExecuteCallTransaction executes tx read-only and returns its return data.
func (p *Provider) ExecuteCallTransaction(ctx context.Context, tx EthTransaction) ([]byte, error) {
	res, err := p.Process(ctx, tx, Call{})
	if err != nil {
		return nil, err
	}
	return res.ReturnData, nil
}

// BuildEstimateGasTransaction returns the unsigned transaction for tx.
// Running the estimation is left to execute's owner.
func (p *Provider) BuildEstimateGasTransaction(ctx context.Context, tx EthTransaction, execute EstimateGasFunc) (*RawL2Transaction, error) {
	res, err := p.Process(ctx, tx, EstimateGas{Execute: execute})
	if err != nil {
		return nil, err
	}
	return res.RawTx, nil
}

// prepared is the common prefix of every process.
type prepared struct {
	tx      *NormalizedTransaction
	raw     *RawL2Transaction
	method  *abi.Method
	mapping *AddressMapping
	extra   []byte
}

func (p *Provider) prepare(ctx context.Context, tx EthTransaction) (*prepared, error) {
	var data []byte
	if tx.Data != "" {
		var err error
		if data, err = parseData("data", tx.Data); err != nil {
			return nil, err
		}
	}

	out := &prepared{mapping: NewAddressMapping(), extra: EmptyAbiItem}
	if method, ok := p.abi.Match(data); ok {
		transcoded, mapping, err := TranscodeInputs(ctx, data, method, p.gw.resolver.ResolveShortAddress)
		if err != nil {
			return nil, err
		}
		tx.Data = hexutil.Encode(transcoded)
		out.method = method
		out.mapping = mapping
		if len(AddressInputs(method)) > 0 {
			out.extra = SerializeAbiItem(method)
		}
	}

	normalized, err := NormalizeEthTransaction(tx)
	if err != nil {
		return nil, err
	}
	raw, err := p.gw.AssembleRawL2Transaction(ctx, normalized)
	if err != nil {
		return nil, err
	}
	out.tx = normalized
	out.raw = raw
	return out, nil
}

func (p *Provider) sign(ctx context.Context, pre *prepared, proc Send) ([]byte, error) {
	sender, err := p.gw.resolver.ScriptHashByEoaEthAddress(pre.tx.From)
	if err != nil {
		return nil, err
	}
	receiver, err := p.gw.client.GetScriptHash(ctx, uint64(pre.raw.ToID))
	if err != nil {
		return nil, err
	}
	message, err := p.gw.GenerateTransactionMessageToSign(*pre.raw, sender, receiver, proc.MessageType)
	if err != nil {
		return nil, err
	}

	sig, err := proc.Sign(ctx, message)
	if err != nil {
		return nil, err
	}
	packed, err := PackSignature(sig)
	if err != nil {
		return nil, err
	}

	serialized, err := SerializeL2TransactionWithAddressMapping(L2TransactionWithAddressMapping{
		Tx:        L2Transaction{Raw: *pre.raw, Signature: packed},
		Addresses: pre.mapping.Items(),
		Extra:     pre.extra,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Signed transaction", "from", pre.tx.From, "nonce", uint64(pre.raw.Nonce), "mappings", pre.mapping.Len())
	return serialized, nil
}

func (p *Provider) call(ctx context.Context, pre *prepared) ([]byte, error) {
	result, err := p.gw.client.PolyExecuteRawL2Transaction(ctx, RawL2TransactionWithAddressMapping{
		RawTx:     *pre.raw,
		Addresses: pre.mapping.Items(),
		Extra:     pre.extra,
	})
	if err != nil {
		return nil, err
	}
	if pre.method == nil {
		return result.ReturnData, nil
	}
	return TranscodeOutputs(ctx, result.ReturnData, pre.method, p.gw.resolver.ResolveEthAddress)
}
