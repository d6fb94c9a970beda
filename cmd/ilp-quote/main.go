package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Checker-Finance/interledger/internal/metrics"
	"github.com/Checker-Finance/interledger/internal/quoter"
	"github.com/Checker-Finance/interledger/internal/transport"
	"github.com/Checker-Finance/interledger/pkg/config"
	"github.com/Checker-Finance/interledger/pkg/logger"
	"github.com/Checker-Finance/interledger/pkg/model"
	"github.com/Checker-Finance/interledger/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		destination = flag.String("destination", "", "destination ILP address (required)")
		srcAmount   = flag.String("source-amount", "", "source amount to quote")
		dstAmount   = flag.String("destination-amount", "", "destination amount to quote")
		connectors  = flag.String("connectors", "", "comma-separated connector accounts (overrides defaults)")
		timeout     = flag.Duration("timeout", 0, "per-connector quote timeout")
	)
	flag.Parse()

	if *destination == "" {
		fmt.Fprintln(os.Stderr, "usage: ilp-quote -destination <address> (-source-amount N | -destination-amount N)")
		os.Exit(2)
	}

	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [ilp-quote]...")
	logg.Info("connecting to NATS: ", utils.MaskURL(cfg.NATSURL))

	if cfg.MetricsPort > 0 {
		metrics.StartServer(fmt.Sprintf(":%d", cfg.MetricsPort))
	}

	tr := transport.NewNATS(transport.NATSConfig{
		URL:     cfg.NATSURL,
		Account: cfg.Account,
		Info: transport.Info{
			AddressPrefix:     cfg.LedgerPrefix,
			DefaultConnectors: cfg.Connectors,
		},
		SubjectPrefix: cfg.SubjectPrefix,
	}, logger.L())
	defer tr.Close()

	q := quoter.New(tr, logger.L())
	defer q.Close()

	req := model.QuoteRequest{
		DestinationAddress: *destination,
		SourceAmount:       *srcAmount,
		DestinationAmount:  *dstAmount,
		Timeout:            *timeout,
	}
	if req.Timeout == 0 {
		req.Timeout = cfg.QuoteTimeout
	}
	if *connectors != "" {
		req.Connectors = splitList(*connectors)
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout+5*time.Second)
	defer cancel()

	quote, err := q.Quote(ctx, req)
	if err != nil {
		logg.Fatalw("quote negotiation failed", "error", err)
	}

	out, _ := json.MarshalIndent(quote, "", "  ")
	fmt.Println(string(out))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
