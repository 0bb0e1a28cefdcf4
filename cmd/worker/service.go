package main

import (
	"log"

	"github.com/UnendingLoop/ImageEvents/internal/kafka"
)

type consumer interface {
	Close() error
}

// resources - все, что воркер должен закрыть при остановке
type resources struct {
	consumer      consumer
	publishers    []*kafka.Publisher
	closeRegistry func() error
	closeDB       func() error
}

func shutdown(r resources) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := r.consumer.Close(); err != nil {
		log.Println("Failed to close Kafka-reader:", err)
	}
	for _, p := range r.publishers {
		if err := p.Close(); err != nil {
			log.Println("Failed to close Kafka-producer:", err)
		}
	}
	log.Println("Kafka connections closed.")

	if err := r.closeRegistry(); err != nil {
		log.Println("Failed to close Redis connection:", err)
	}

	// Closing DB connection
	if err := r.closeDB(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
