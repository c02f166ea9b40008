// Command polyjuice encodes Polyjuice call arguments, resolves Godwoken
// addresses and talks to a Godwoken web3 node.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "TOML configuration file",
	}
	rpcFlag = &cli.StringFlag{
		Name:  "rpc",
		Usage: "Godwoken web3 JSON-RPC endpoint",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log.level",
		Usage: "log level (trace, debug, info, warn, error, crit)",
	}
	rateLimitFlag = &cli.Float64Flag{
		Name:  "rate-limit",
		Usage: "maximum RPC requests per second, 0 for unlimited",
	}
	rollupTypeHashFlag = &cli.StringFlag{
		Name:  "rollup-type-hash",
		Usage: "rollup type hash, queried from the node when unset",
	}
	ethAccountLockFlag = &cli.StringFlag{
		Name:  "eth-account-lock-hash",
		Usage: "code hash of the EOA lock, queried from the node when unset",
	}
	creatorIDFlag = &cli.StringFlag{
		Name:  "creator-id",
		Usage: "Polyjuice creator account id, queried from the node when unset",
	}
	defaultFromFlag = &cli.StringFlag{
		Name:  "default-from",
		Usage: "sender for calls without one, queried from the node when unset",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "polyjuice",
		Usage: "Godwoken Polyjuice client",
		Flags: []cli.Flag{
			configFlag,
			rpcFlag,
			logLevelFlag,
			rateLimitFlag,
			rollupTypeHashFlag,
			ethAccountLockFlag,
			creatorIDFlag,
			defaultFromFlag,
		},
		Commands: []*cli.Command{
			argsCommand,
			addressCommand,
			callCommand,
			submitCommand,
			waitCommand,
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the terminal log handler on stderr.
func setupLogging(level string) error {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	fd := os.Stderr.Fd()
	useColor := (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)))
	return nil
}
