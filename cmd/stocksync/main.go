package main

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/config"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/stocksync"
	"github.com/joho/godotenv"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	w := &stocksync.Worker{
		Store:   &orders.Repo{DB: db},
		Dedup:   redisx.NewDedup(rdb, cfg.ServiceName+"-stocksync"),
		Marks:   redisx.NewWatermarks(rdb),
		Timeout: cfg.StoreTimeout,
	}

	// one consumer per topic: synced reservations advance the marks,
	// unsynced ones are replayed
	var wg sync.WaitGroup
	for _, topic := range []string{orders.TopicStockReserved, orders.TopicStockUnsynced} {
		topic := topic
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.StockSyncGroup, topic, cfg.StockSyncWorkers)
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("stocksync consumer started: group=%s topic=%s workers=%d", cfg.StockSyncGroup, topic, cfg.StockSyncWorkers)
			if err := cons.Start(ctx, w.Handle); err != nil {
				log.Printf("consumer %s exit: %v", topic, err)
				cancel()
			}
		}()
	}

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumers...")
	cancel()
	wg.Wait()
}
