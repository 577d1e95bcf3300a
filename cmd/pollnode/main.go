package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"flag"
	"log"
	"time"

	comm "github.com/daopoll/pollnode/internal/common"
	"github.com/daopoll/pollnode/internal/config"
	"github.com/daopoll/pollnode/internal/services/aawallet"
	"github.com/daopoll/pollnode/internal/services/db"
	"github.com/daopoll/pollnode/internal/services/ethrequest"
	"github.com/daopoll/pollnode/internal/services/webhook"
	"github.com/daopoll/pollnode/pkg/contracts/pollregistry"
	"github.com/daopoll/pollnode/pkg/queue"
	"github.com/daopoll/pollnode/pkg/repository"
	"github.com/daopoll/pollnode/pkg/router"
	"github.com/daopoll/pollnode/pkg/submitter"
	"github.com/ethereum/go-ethereum/common"
	"github.com/getsentry/sentry-go"
)

func main() {
	log.Default().Println("launching pollnode...")

	env := flag.String("env", "", "path to .env file")

	port := flag.Int("port", 3000, "port to listen on")

	refresh := flag.Int("refresh", 30, "poll cache refresh interval in seconds (default: 30)")

	notify := flag.Bool("notify", false, "enable webhook notifications")

	flag.Parse()

	ctx := context.Background()

	conf, err := config.New(ctx, *env)
	if err != nil {
		log.Fatal(err)
	}

	if conf.SentryURL != "" && conf.SentryURL != "x" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn: conf.SentryURL,
			// Set TracesSampleRate to 1.0 to capture 100%
			// of transactions for performance monitoring.
			// We recommend adjusting this value in production,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		// Flush buffered events before the program terminates.
		defer sentry.Flush(2 * time.Second)
	}

	loc, err := time.LoadLocation(conf.LeaderboardTimezone)
	if err != nil {
		log.Fatal(err)
	}

	log.Default().Println("connecting to rpc...")

	evm, err := ethrequest.NewEthService(ctx, conf.RPCURL)
	if err != nil {
		log.Fatal(err)
	}
	defer evm.Close()

	log.Default().Println("fetching chain id...")

	chid, err := evm.ChainID()
	if err != nil {
		log.Fatal(err)
	}

	log.Default().Println("node running for chain: ", chid.String())

	reg, err := pollregistry.NewPollRegistry(common.HexToAddress(conf.RegistryAddress), evm.Backend())
	if err != nil {
		log.Fatal(err)
	}

	deployed, err := reg.Deployed(ctx, evm.Backend())
	if err != nil {
		log.Fatal(err)
	}

	if !deployed {
		log.Fatal("poll registry is not deployed at: ", conf.RegistryAddress)
	}

	var store repository.Store
	if !conf.DBDisabled {
		log.Default().Println("starting internal db service...")

		d, err := db.NewDB(chid, conf.DBUser, conf.DBPassword, conf.DBName, conf.DBHost, conf.DBReaderHost)
		if err != nil {
			log.Fatal(err)
		}
		defer d.Close()

		store = d.PollDB
	}

	wm := webhook.NewMessager(conf.DiscordURL, conf.ChainName, *notify)

	repo := repository.New(reg, store, 0, 0)

	err = repo.Warm()
	if err != nil {
		log.Default().Println("snapshot warm-up skipped: ", err)
	}

	log.Default().Println("starting wallet service...")

	var key *ecdsa.PrivateKey
	if conf.SessionPrivateKey != "" {
		key, err = comm.HexToPrivateKey(conf.SessionPrivateKey)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		log.Default().Println("no session key configured, submissions will be refused...")
	}

	wallet, err := aawallet.NewService(ctx, conf.BundlerRPCURL, conf.BundlerOriginHeader, evm, chid, common.HexToAddress(conf.EntryPointAddress), common.HexToAddress(conf.AccountAddress), key)
	if err != nil {
		log.Fatal(err)
	}
	defer wallet.Close()

	quitAck := make(chan error)

	// rejected operations are surfaced to the caller, never retried
	opq := queue.NewService("operations", 0, 30, ctx, wm)
	defer opq.Close()

	sub := submitter.New(wallet, opq, 0, 0)

	go func() {
		quitAck <- opq.Start(sub.Processor())
	}()

	go func() {
		t := time.NewTicker(time.Duration(*refresh) * time.Second)
		defer t.Stop()

		for range t.C {
			_, err := repo.Refresh(ctx)
			if err != nil && !errors.Is(err, repository.ErrSuperseded) {
				log.Default().Println("background refresh failed: ", err)
			}
		}
	}()

	log.Default().Println("starting api service...")

	api := router.NewServer(conf.APIKey, repo, sub, reg, loc)

	go func() {
		quitAck <- api.Start(*port)
	}()

	log.Default().Println("listening on port: ", *port)

	for err := range quitAck {
		if err != nil {
			log.Fatal(err)
		}
	}
}
