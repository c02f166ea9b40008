package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	polyjuice "github.com/RosaliaNienow/quaminventore"
)

var (
	fromFlag     = &cli.StringFlag{Name: "from", Usage: "sender address"}
	toFlag       = &cli.StringFlag{Name: "to", Usage: "receiver address, empty to deploy"}
	gasFlag      = &cli.StringFlag{Name: "gas", Usage: "gas limit (hex quantity)"}
	gasPriceFlag = &cli.StringFlag{Name: "gas-price", Usage: "gas price (hex quantity)"}
	valueFlag    = &cli.StringFlag{Name: "value", Usage: "value (hex quantity)"}
	dataFlag     = &cli.StringFlag{Name: "data", Usage: "call data (hex)"}
	abiFlag      = &cli.StringFlag{Name: "abi", Usage: "contract ABI JSON file used to transcode addresses"}
	timeoutFlag  = &cli.DurationFlag{Name: "timeout", Usage: "maximum time to wait for the transaction"}
	intervalFlag = &cli.DurationFlag{Name: "interval", Usage: "delay between polls"}
	waitFlag     = &cli.BoolFlag{Name: "wait", Usage: "wait for the transaction after submitting it"}
)

var argsCommand = &cli.Command{
	Name:  "args",
	Usage: "Encode and decode Polyjuice call arguments",
	Subcommands: []*cli.Command{
		{
			Name:   "encode",
			Usage:  "Encode an Ethereum transaction as Polyjuice args",
			Flags:  []cli.Flag{toFlag, gasFlag, gasPriceFlag, valueFlag, dataFlag},
			Action: withConfig(encodeArgs),
		},
		{
			Name:      "decode",
			Usage:     "Decode Polyjuice args",
			ArgsUsage: "<hex>",
			Action:    withConfig(decodeArgs),
		},
	},
}

var addressCommand = &cli.Command{
	Name:  "address",
	Usage: "Resolve addresses between Ethereum and Godwoken",
	Subcommands: []*cli.Command{
		{
			Name:      "short",
			Usage:     "Resolve the Godwoken short address of an Ethereum address",
			ArgsUsage: "<eth address>",
			Action:    withConfig(resolveShort),
		},
		{
			Name:      "eth",
			Usage:     "Resolve the Ethereum address of a Godwoken short address",
			ArgsUsage: "<short address>",
			Action:    withConfig(resolveEth),
		},
	},
}

var callCommand = &cli.Command{
	Name:   "call",
	Usage:  "Execute a read-only call",
	Flags:  []cli.Flag{fromFlag, toFlag, gasFlag, gasPriceFlag, valueFlag, dataFlag, abiFlag},
	Action: withConfig(call),
}

var submitCommand = &cli.Command{
	Name:      "submit",
	Usage:     "Submit a serialized L2TransactionWithAddressMapping",
	ArgsUsage: "<hex>",
	Flags:     []cli.Flag{waitFlag, timeoutFlag, intervalFlag},
	Action:    withConfig(submit),
}

var waitCommand = &cli.Command{
	Name:      "wait",
	Usage:     "Wait until the node knows a transaction and print its receipt",
	ArgsUsage: "<tx hash>",
	Flags:     []cli.Flag{timeoutFlag, intervalFlag},
	Action:    withConfig(wait),
}

// withConfig loads configuration and logging before running fn.
func withConfig(fn func(*cli.Context, *config) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if err := setupLogging(cfg.LogLevel); err != nil {
			return err
		}
		return fn(c, cfg)
	}
}

// dial connects to the node and resolves the chain configuration.
func dial(c *cli.Context, cfg *config) (*polyjuice.Godwoker, error) {
	opts, err := cfg.godwokerOptions()
	if err != nil {
		return nil, err
	}
	client, err := polyjuice.Dial(c.Context, cfg.RPC, cfg.clientOptions()...)
	if err != nil {
		return nil, err
	}
	gw, err := polyjuice.New(c.Context, client, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	return gw, nil
}

func txFromFlags(c *cli.Context) polyjuice.EthTransaction {
	return polyjuice.EthTransaction{
		From:     c.String(fromFlag.Name),
		To:       c.String(toFlag.Name),
		Gas:      c.String(gasFlag.Name),
		GasPrice: c.String(gasPriceFlag.Name),
		Value:    c.String(valueFlag.Name),
		Data:     c.String(dataFlag.Name),
	}
}

func firstArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one argument: %s", name)
	}
	return c.Args().First(), nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeArgs(c *cli.Context, _ *config) error {
	args, err := polyjuice.EncodeArgs(txFromFlags(c))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, hexutil.Encode(args))
	return err
}

type decodedArgsView struct {
	Header   string         `json:"header"`
	Create   bool           `json:"create"`
	GasLimit hexutil.Uint64 `json:"gasLimit"`
	GasPrice *hexutil.Big   `json:"gasPrice"`
	Value    *hexutil.Big   `json:"value"`
	Data     hexutil.Bytes  `json:"data"`
}

func decodeArgs(c *cli.Context, _ *config) error {
	s, err := firstArg(c, "args")
	if err != nil {
		return err
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	if err := polyjuice.ValidateArgsHeader(raw); err != nil {
		log.Warn("Args header is not Polyjuice", "err", err)
	}
	decoded, err := polyjuice.DecodeArgs(raw)
	if err != nil {
		return err
	}
	return printJSON(c, decodedArgsView{
		Header:   decoded.Header,
		Create:   decoded.Kind.IsCreate(),
		GasLimit: hexutil.Uint64(decoded.GasLimit),
		GasPrice: (*hexutil.Big)(decoded.GasPrice),
		Value:    (*hexutil.Big)(decoded.Value),
		Data:     decoded.Data,
	})
}

func resolveShort(c *cli.Context, cfg *config) error {
	s, err := firstArg(c, "eth address")
	if err != nil {
		return err
	}
	eth, err := parseAddress("eth address", s)
	if err != nil {
		return err
	}
	gw, err := dial(c, cfg)
	if err != nil {
		return err
	}
	defer gw.Client().Close()

	short, err := gw.Resolver().ResolveShortAddress(c.Context, eth)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s %s\n", short.Value.Hex(), short.Type)
	return err
}

func resolveEth(c *cli.Context, cfg *config) error {
	s, err := firstArg(c, "short address")
	if err != nil {
		return err
	}
	short, err := parseAddress("short address", s)
	if err != nil {
		return err
	}
	gw, err := dial(c, cfg)
	if err != nil {
		return err
	}
	defer gw.Client().Close()

	eth, err := gw.Resolver().ResolveEthAddress(c.Context, short)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, eth.Hex())
	return err
}

func loadABI(path string) (*polyjuice.ABI, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return polyjuice.ParseABI(string(b))
}

func call(c *cli.Context, cfg *config) error {
	contractABI, err := loadABI(cfg.ABI)
	if err != nil {
		return err
	}
	gw, err := dial(c, cfg)
	if err != nil {
		return err
	}
	defer gw.Client().Close()

	ret, err := polyjuice.NewProvider(contractABI, gw).ExecuteCallTransaction(c.Context, txFromFlags(c))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, hexutil.Encode(ret))
	return err
}

func submit(c *cli.Context, cfg *config) error {
	s, err := firstArg(c, "serialized transaction")
	if err != nil {
		return err
	}
	serialized, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}
	if _, err := polyjuice.DeserializeL2TransactionWithAddressMapping(serialized); err != nil {
		return err
	}
	client, err := polyjuice.Dial(c.Context, cfg.RPC, cfg.clientOptions()...)
	if err != nil {
		return err
	}
	defer client.Close()

	hash, err := client.PolySubmitSerializedL2Transaction(c.Context, serialized)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(c.App.Writer, hash.Hex()); err != nil {
		return err
	}
	if !c.Bool(waitFlag.Name) {
		return nil
	}
	return waitAndPrint(c, cfg, client, hash)
}

func wait(c *cli.Context, cfg *config) error {
	s, err := firstArg(c, "tx hash")
	if err != nil {
		return err
	}
	hash, err := parseHash("tx hash", s)
	if err != nil {
		return err
	}
	client, err := polyjuice.Dial(c.Context, cfg.RPC, cfg.clientOptions()...)
	if err != nil {
		return err
	}
	defer client.Close()
	return waitAndPrint(c, cfg, client, hash)
}

func waitAndPrint(c *cli.Context, cfg *config, client *polyjuice.Client, hash common.Hash) error {
	tx, err := client.WaitForTransaction(c.Context, hash,
		polyjuice.WithWaitTimeout(cfg.WaitTimeout),
		polyjuice.WithPollInterval(cfg.PollInterval),
	)
	if errors.Is(err, polyjuice.ErrTimeout) {
		return fmt.Errorf("%w (the transaction may have been rejected)", err)
	}
	if err != nil {
		return err
	}
	log.Info("Transaction found", "hash", hash, "status", tx.Status)

	receipt, err := client.GetTransactionReceipt(c.Context, hash)
	if err != nil {
		return err
	}
	if receipt == nil {
		_, err = fmt.Fprintln(c.App.Writer, tx.Status)
		return err
	}
	return printJSON(c, receipt)
}
