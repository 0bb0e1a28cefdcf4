// Package main (in api-subfolder) provides launch of the HTTP API: auth, read path and publishing of image mutations
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/kafka"
	"github.com/UnendingLoop/ImageEvents/internal/mwlogger"
	"github.com/UnendingLoop/ImageEvents/internal/repository"
	"github.com/UnendingLoop/ImageEvents/internal/settings"
	"github.com/UnendingLoop/ImageEvents/internal/storage"
	"github.com/UnendingLoop/ImageEvents/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Printf("No .env file loaded (%v), using process environment", err)
	}
	cfg := settings.FromConfig(appConfig)
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("Invalid configuration: %v\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn, err := repository.ConnectWithRetries(cfg.PostgresDSN, 5, 10*time.Second)
	if err != nil {
		log.Fatalf("%v. Exiting the app...", err)
	}
	// накатываем миграцию
	if err := repository.MigrateWithRetries(dbConn.Master, cfg.MigrationsPath, 10, 15*time.Second); err != nil {
		log.Fatalf("%v. Exiting the app...", err)
	}

	// подключиться к хранилищу - нужно для отдачи файлов
	strg, err := storage.NewImgStorage(ctx, cfg, 10*time.Second)
	if err != nil {
		log.Fatalf("IMG-storage unavailable: %v. Exiting the app...", err)
	}

	// ждем пока кафка раздуплится, объявляем основной топик и DLQ
	if err := kafka.WaitKafkaReady(ctx, cfg.KafkaBroker); err != nil {
		log.Fatalf("Kafka never became ready: %v", err)
	}
	if err := kafka.InitKafkaTopics(ctx, cfg.KafkaBroker, 10*time.Second, cfg.KafkaMaxMessageBytes, cfg.KafkaTopic, cfg.KafkaDLQTopic); err != nil {
		log.Fatalf("Failed to declare topics: %v", err)
	}
	pub := kafka.NewTopicPublisher(cfg.KafkaBroker, cfg.KafkaTopic, publishTimeout, cfg.KafkaMaxMessageBytes)

	// сервисы и хендлеры
	if err := transport.RegisterValidators(); err != nil {
		log.Fatalf("Failed to register validators: %v", err)
	}
	imgHandler, authHandler, authMW := buildHandlers(cfg, dbConn, pub, strg)

	// сетапим сервер
	engine := ginext.New(cfg.GinMode)
	// ginext перекрывает GET/Group/Use без возвращаемых значений, маршруты вешаем на сам gin.Engine
	transport.RegisterRoutes(engine.Engine, imgHandler, authHandler, authMW)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           mwlogger.NewMWLogger(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Server launch
	g.Go(func() error {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Println("Server gracefully stopping...")
		return nil
	})

	// ждем отмены контекста для запуска грейсфул закрытия сервера
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	shutdown(pub, dbConn)
	log.Println("Exiting API...")
}

// publishTimeout - сколько ждем брокер, прежде чем ответить 503
const publishTimeout = 5 * time.Second

func shutdown(pub *kafka.Publisher, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-producer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
