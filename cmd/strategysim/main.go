package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/krazyTry/meteora-strategy/ledger"
	"github.com/krazyTry/meteora-strategy/logger"
	"github.com/krazyTry/meteora-strategy/sim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	scenarioFlag := flag.String("scenario", "", "path to the scenario file (or set STRATEGYSIM_SCENARIO env var)")
	envFileFlag := flag.String("env-file", ".env", "optional dotenv file read before flags are resolved")

	// Ledger seeding
	rpcURLFlag := flag.String("rpc-url", "", "RPC endpoint to clone accounts from (or set STRATEGYSIM_RPC_URL env var)")
	cloneFlag := flag.StringSlice("clone", nil, "account addresses to clone from --rpc-url before the run")

	// Runner options
	maxRetriesFlag := flag.Int("max-retries", 20, "retries for transactions rejected with account-in-use")
	retryBackoffFlag := flag.Duration("retry-backoff", 5*time.Millisecond, "delay between retries")
	metricsAddrFlag := flag.String("metrics-addr", "", "address to serve prometheus metrics on (or set STRATEGYSIM_METRICS_ADDR env var)")
	holdFlag := flag.Bool("hold", false, "keep serving metrics after the scenario finishes until interrupted")

	flag.Parse()

	log := logger.New(*verboseFlag)

	if err := godotenv.Load(*envFileFlag); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s: %w", *envFileFlag, err)
	}

	// Override flags with environment variables if set
	if envScenario := os.Getenv("STRATEGYSIM_SCENARIO"); envScenario != "" {
		*scenarioFlag = envScenario
	}
	if envRPCURL := os.Getenv("STRATEGYSIM_RPC_URL"); envRPCURL != "" {
		*rpcURLFlag = envRPCURL
	}
	if envMetricsAddr := os.Getenv("STRATEGYSIM_METRICS_ADDR"); envMetricsAddr != "" {
		*metricsAddrFlag = envMetricsAddr
	}

	if *scenarioFlag == "" {
		return fmt.Errorf("--scenario is required")
	}

	// Start metrics server
	if *metricsAddrFlag != "" {
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	data, err := os.ReadFile(*scenarioFlag)
	if err != nil {
		return fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := sim.ParseScenario(data)
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	cfg := sim.Config{
		Logger:       log,
		Clock:        clock,
		MaxRetries:   *maxRetriesFlag,
		RetryBackoff: *retryBackoffFlag,
	}

	if *rpcURLFlag != "" {
		l, err := ledger.New(ledger.Config{Logger: log, Clock: clock})
		if err != nil {
			return err
		}
		keys := make([]solana.PublicKey, 0, len(*cloneFlag))
		for _, s := range *cloneFlag {
			key, err := solana.PublicKeyFromBase58(s)
			if err != nil {
				return fmt.Errorf("invalid --clone address %q: %w", s, err)
			}
			keys = append(keys, key)
		}
		cloned, err := l.CloneAccounts(ctx, rpc.New(*rpcURLFlag), keys)
		if err != nil {
			return fmt.Errorf("failed to clone accounts: %w", err)
		}
		log.Info("cloned accounts", "rpc_url", *rpcURLFlag, "requested", len(keys), "cloned", cloned)
		cfg.Ledger = l
	}

	runner, err := sim.NewRunner(ctx, cfg, sc)
	if err != nil {
		return err
	}
	log.Info("running scenario", "name", sc.Name, "positions", len(sc.Positions), "steps", len(sc.Steps))

	results, runErr := runner.Run(ctx)
	for i, res := range results {
		attrs := []any{"index", i, "action", res.Action}
		if res.Position != "" {
			attrs = append(attrs, "position", res.Position)
		}
		if res.Keeper != "" {
			attrs = append(attrs, "keeper", res.Keeper)
		}
		if res.Receipt != nil {
			attrs = append(attrs, "tx", res.Receipt.ID, "duration", res.Receipt.Duration)
		}
		if res.Err != nil {
			attrs = append(attrs, "error", res.Err)
		}
		log.Debug("step", attrs...)
	}

	rep, err := runner.Report()
	if err != nil {
		return err
	}
	if err := printReport(os.Stdout, rep); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if *holdFlag && *metricsAddrFlag != "" {
		log.Info("scenario finished, serving metrics until interrupted")
		<-ctx.Done()
	}
	return nil
}

func printReport(out io.Writer, rep *sim.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POSITION\tSTATUS\tLIQUIDITY\tDEPOSIT\tLP SHARES\tNFT MINT")
	for _, p := range rep.Positions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", p.Name, p.Status, p.Liquidity, p.Deposit, p.LpShares, p.NftMint)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "KEEPER\tCREDITS\tKEY")
	for _, k := range rep.Keepers {
		fmt.Fprintf(w, "%s\t%d\t%s\n", k.Name, k.Credits, k.Key)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "custody token0\t%s\n", rep.Custody0)
	fmt.Fprintf(w, "custody token1\t%s\n", rep.Custody1)
	fmt.Fprintf(w, "reward vault\t%s SOL\n", rep.RewardVault)
	return w.Flush()
}
