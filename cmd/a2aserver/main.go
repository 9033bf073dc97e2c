// Command a2aserver runs the A2A protocol runtime: it wires a config file to
// an event log store, a pub/sub hub, an orchestrator, and the JSON-RPC/REST
// HTTP front-end, in the style of the teacher's example/cmd/assistant main
// (flag-based bootstrap, goa.design/clue logging context, signal-driven
// graceful shutdown).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
	"goa.design/clue/log"

	"github.com/a2a-labs/agent-runtime/internal/a2a/config"
	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog/mongostore"
	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog/redisstore"
	"github.com/a2a-labs/agent-runtime/internal/a2a/orchestrator"
	"github.com/a2a-labs/agent-runtime/internal/a2a/protocol"
	"github.com/a2a-labs/agent-runtime/internal/a2a/pubsub"
	"github.com/a2a-labs/agent-runtime/internal/a2a/pubsub/pulsesink"
	"github.com/a2a-labs/agent-runtime/internal/a2a/telemetry"
	"github.com/a2a-labs/agent-runtime/examples/scenario"
)

func main() {
	var (
		configF = flag.String("config", "", "Path to the server's YAML config file (defaults to an in-memory store on :8080)")
		dbgF    = flag.Bool("debug", false, "Log request and response bodies")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
	}

	cfg := config.DefaultConfig()
	if *configF != "" {
		loaded, err := config.Load(*configF)
		if err != nil {
			log.Fatalf(ctx, err, "loading config")
		}
		cfg = loaded
	}

	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()

	notifier, err := buildNotifier(ctx, cfg)
	if err != nil {
		log.Fatalf(ctx, err, "building notifier")
	}

	store, err := buildStore(ctx, cfg, notifier.hub, notifier.fanout)
	if err != nil {
		log.Fatalf(ctx, err, "building event log store")
	}

	orch := orchestrator.NewServer(
		store,
		notifier.hub,
		scenario.NewAgent(),
		cfg.Orchestrator.ToOrchestratorConfig(),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(metrics),
	)

	var card *protocol.CardSource
	if cfg.Card.File != "" {
		card, err = loadCard(cfg.Card)
		if err != nil {
			log.Fatalf(ctx, err, "loading agent card")
		}
	}

	protoSrv := protocol.NewServer(orch, card, protocol.WithLogger(logger), protocol.WithMetrics(metrics))

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", protoSrv.HandleJSONRPC)
	mux.Handle("/v1/", protoSrv.RESTHandler())

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	go func() {
		log.Print(ctx, log.KV{K: "listen_addr", V: cfg.ListenAddr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Print(ctx, log.KV{K: "shutdown_error", V: err.Error()})
	}
	log.Print(ctx, log.KV{K: "msg", V: "exited"})
}

// notifierSet is the Notifier chain passed to stores: the in-process Hub is
// always present (subscribe() depends on it); the Pulse sink is additive.
type notifierSet struct {
	hub    *pubsub.Hub
	fanout eventlog.Notifier
}

func buildNotifier(ctx context.Context, cfg *config.Config) (notifierSet, error) {
	hub := pubsub.NewHub()
	if cfg.Pulse == nil || !cfg.Pulse.Enabled {
		return notifierSet{hub: hub, fanout: hub}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Pulse.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return notifierSet{}, fmt.Errorf("connecting to pulse redis: %w", err)
	}
	sink, err := pulsesink.New(pulsesink.Options{Redis: rdb, StreamMaxLen: cfg.Pulse.StreamMaxLen})
	if err != nil {
		return notifierSet{}, fmt.Errorf("building pulse sink: %w", err)
	}
	return notifierSet{hub: hub, fanout: pubsub.NewFanoutNotifier(hub, sink)}, nil
}

func buildStore(ctx context.Context, cfg *config.Config, hub *pubsub.Hub, notifier eventlog.Notifier) (eventlog.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		return eventlog.NewInMemoryStore(notifier), nil

	case config.StoreBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return redisstore.New(rdb, notifier), nil

	case config.StoreBackendMongo:
		client, err := mongodriver.Connect(mongooptions.Client().ApplyURI(cfg.Store.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("connecting to mongo: %w", err)
		}
		return mongostore.New(ctx, mongostore.Options{Client: client, Database: cfg.Store.Mongo.Database}, notifier)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// cardFile is the on-disk JSON shape of cfg.Card.File: the public card plus
// the skill set the authenticated extended card adds. The extended card's
// Authenticate callback can't be expressed in JSON, so loadCard wires a check
// that accepts any request with a non-empty Authorization header (of any
// scheme) when extended_card_enabled is set — real
// per-scheme verification is left for an operator to swap in by constructing
// protocol.CardSource directly instead of through this loader.
type cardFile struct {
	Base           protocol.AgentCard `json:"base"`
	ExtendedSkills []protocol.Skill   `json:"extendedSkills,omitempty"`
}

func loadCard(cc config.CardConfig) (*protocol.CardSource, error) {
	data, err := os.ReadFile(cc.File)
	if err != nil {
		return nil, fmt.Errorf("reading card file: %w", err)
	}
	var file cardFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing card file: %w", err)
	}

	source := &protocol.CardSource{Base: file.Base, ExtendedSkills: file.ExtendedSkills}
	if cc.ExtendedCardEnabled {
		source.ExtendedPolicy = &protocol.ExtendedCardPolicy{
			Authenticate: func(r *http.Request) bool { return r.Header.Get("Authorization") != "" },
		}
	}
	return source, nil
}
