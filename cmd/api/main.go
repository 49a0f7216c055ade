package main

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/dynamo"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/localstore"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/tracking"
	"github.com/joho/godotenv"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	repo := &orders.Repo{DB: db}

	// durable local cache
	cache, closeCache := openCache(cfg)
	defer closeCache()

	// Kafka
	bus := kafkax.NewEventBus(cfg.KafkaBrokers, cfg.ServiceName,
		orders.TopicOrderPlaced,
		orders.TopicStockReserved,
		orders.TopicStockRejected,
		orders.TopicStockUnsynced,
		orders.TopicNotifications,
	)
	bus.Start(ctx)

	sink := notify.NewDedup(notify.Fanout{notify.Log{}, notify.EventSink{Emitter: bus}}, cfg.NotifyDedupWindow)

	// inventory
	stock := inventory.New(repo, cache, sink, bus, inventory.Options{
		DefaultUnits:      cfg.DefaultStock,
		LowStockThreshold: cfg.LowStockThreshold,
		StoreTimeout:      cfg.StoreTimeout,
	})
	stock.Load(ctx)
	if err := stock.Refresh(ctx); err != nil {
		log.Printf("initial inventory refresh: %v", err)
		if ps, err := repo.ListProducts(ctx); err == nil {
			stock.SeedIfEmpty(ctx, stockFromCatalog(ps))
		}
	}

	// orders
	archive := openArchive(ctx, cfg, repo)
	co := checkout.New(stock, archive, sink, bus, checkout.Options{
		ShippingCents:  cfg.ShippingCents,
		TaxRate:        cfg.TaxRate,
		DeliveryWindow: cfg.DeliveryWindow,
	})
	tracker := tracking.NewTracker(archive, time.Now)

	h := httpx.NewHandler(repo, stock, cart.NewRegistry(cache, sink), co, tracker)
	router := httpx.NewRouter(h, cfg.CORSOrigins)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s (cache=%s archive=%s)", cfg.HTTPAddr, cfg.CacheBackend, cfg.OrderArchive)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	bus.Close() // flush pending events
	cancel()
}

func openCache(cfg config.Config) (localstore.Cache, func()) {
	switch cfg.CacheBackend {
	case "memory":
		return localstore.NewMemory(), func() {}
	case "sqlite":
		s, err := localstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite cache: %v", err)
		}
		return s, func() { _ = s.Close() }
	default:
		rdb := redisx.New(cfg.RedisAddr)
		return redisx.NewCache(rdb), func() { _ = rdb.Close() }
	}
}

func openArchive(ctx context.Context, cfg config.Config, repo *orders.Repo) tracking.Archive {
	if cfg.OrderArchive != "dynamodb" {
		return repo
	}
	client, err := dynamo.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("dynamodb: %v", err)
	}
	return dynamo.NewOrderArchive(client, cfg.OrdersTable)
}

func stockFromCatalog(ps []orders.Product) []orders.StockRecord {
	out := make([]orders.StockRecord, 0, len(ps))
	for _, p := range ps {
		out = append(out, orders.StockRecord{ProductID: p.ID, AvailableUnits: p.Stock})
	}
	return out
}
