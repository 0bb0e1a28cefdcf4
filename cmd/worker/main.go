// Package main (in worker-subfolder) runs the consumer that applies image mutation events
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/dedup"
	"github.com/UnendingLoop/ImageEvents/internal/kafka"
	"github.com/UnendingLoop/ImageEvents/internal/repository"
	"github.com/UnendingLoop/ImageEvents/internal/settings"
	"github.com/UnendingLoop/ImageEvents/internal/storage"
	"github.com/UnendingLoop/ImageEvents/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/config"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Printf("No .env file loaded (%v), using process environment", err)
	}
	cfg := settings.FromConfig(appConfig)
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("Invalid configuration: %v\nExiting worker...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе; миграции накатывает API
	dbConn, err := repository.ConnectWithRetries(cfg.PostgresDSN, 5, 10*time.Second)
	if err != nil {
		log.Fatalf("%v. Exiting worker...", err)
	}
	// подкллючиться к хранилищу
	strg, err := storage.NewImgStorage(ctx, cfg, 10*time.Second)
	if err != nil {
		log.Fatalf("IMG-storage unavailable: %v. Exiting worker...", err)
	}

	// реестр обработанных событий; без REDIS_ADDR - заглушка
	registry, closeRegistry, err := dedup.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.KafkaTopic, cfg.DedupTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	processor := worker.NewProcessor(
		repository.NewPostgresImageRepo(dbConn),
		repository.NewPostgresUserRepo(dbConn),
		strg,
		registry,
		cfg.ContentDir,
	)

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, cfg.KafkaBroker); err != nil {
		log.Fatalf("Kafka never became ready: %v", err)
	}

	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	cons := &wbfkafka.Consumer{Reader: kafka.NewGroupReader(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroupID, cfg.KafkaMaxMessageBytes)}
	cons.StartConsuming(ctx, queue, retryStrategy)

	// повторы и DLQ нужны только в режиме подтверждения после успеха
	redeliver := kafka.NewTopicPublisher(cfg.KafkaBroker, cfg.KafkaTopic, 5*time.Second, cfg.KafkaMaxMessageBytes)
	dlq := kafka.NewTopicPublisher(cfg.KafkaBroker, cfg.KafkaDLQTopic, 5*time.Second, cfg.KafkaMaxMessageBytes)

	w := worker.NewWorkerInstance(processor, queue, cons, redeliver, dlq, worker.Options{
		AckAfterSuccess: cfg.AckAfterSuccess(),
		MaxAttempts:     cfg.MaxDeliveryAttempts,
		ProcessTimeout:  cfg.ProcessTimeout,
	})
	zlog.Logger.Info().Str("ack_mode", cfg.AckMode).Int("max_attempts", cfg.MaxDeliveryAttempts).Msg("Worker started")

	// сообщения обрабатываются строго по одному до отмены контекста
	workErr := w.StartWorker(ctx)
	// останавливаем и читателя wbf, иначе он висит на отправке в канал
	stop()

	shutdown(resources{
		consumer:      cons,
		publishers:    []*kafka.Publisher{redeliver, dlq},
		closeRegistry: closeRegistry,
		closeDB:       dbConn.Master.Close,
	})
	if workErr != nil {
		// неподтвержденное событие будет перечитано после рестарта
		log.Fatalf("Worker stopped: %v", workErr)
	}
	log.Println("Exiting worker...")
}
