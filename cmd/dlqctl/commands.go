package main

import (
	"errors"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/dlq"
	"github.com/UnendingLoop/ImageEvents/internal/kafka"
	"github.com/UnendingLoop/ImageEvents/internal/settings"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
)

// RootOptions - общие флаги; значения по умолчанию берутся из окружения
type RootOptions struct {
	Broker   string
	Topic    string
	DLQTopic string
	GroupID  string
	MaxBytes int64
}

func NewRootCommand(cfg settings.Settings) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dlqctl",
		Short: "Inspect and replay dead-lettered image events",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Broker == "" {
				return errors.New("--broker is required (or KAFKA_BROKER)")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Broker, "broker", cfg.KafkaBroker, "kafka broker address")
	cmd.PersistentFlags().StringVar(&opts.Topic, "topic", cfg.KafkaTopic, "main events topic")
	cmd.PersistentFlags().StringVar(&opts.DLQTopic, "dlq-topic", cfg.KafkaDLQTopic, "dead-letter topic")
	cmd.PersistentFlags().StringVar(&opts.GroupID, "group", cfg.KafkaGroupID+"-dlq", "consumer group used to read the dead-letter topic")
	cmd.PersistentFlags().Int64Var(&opts.MaxBytes, "max-message-bytes", cfg.KafkaMaxMessageBytes, "largest message to fetch or republish")

	cmd.AddCommand(NewPeekCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

type PeekOptions struct {
	*RootOptions
	Limit int
}

func NewPeekCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PeekOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "peek",
		Short:         "Print dead-lettered events without consuming them",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := opts.newReader()
			defer r.Close()

			n, err := dlq.Peek(cmd.Context(), r, opts.Limit, cmd.OutOrStdout())
			cmd.Printf("%d event(s) in %s\n", n, opts.DLQTopic)
			return err
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of events to print")

	return cmd
}

type ReplayOptions struct {
	*RootOptions
	Limit int
}

func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "replay",
		Short:         "Move dead-lettered events back to the main topic with a fresh attempt counter",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := opts.newReader()
			defer r.Close()

			pub := kafka.NewTopicPublisher(opts.Broker, opts.Topic, 5*time.Second, opts.MaxBytes)
			defer pub.Close()

			n, err := dlq.Replay(cmd.Context(), r, pub, opts.Limit, cmd.OutOrStdout())
			cmd.Printf("%d event(s) replayed to %s\n", n, opts.Topic)
			return err
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum number of events to replay")

	return cmd
}

func (o *RootOptions) newReader() *kafkago.Reader {
	return kafka.NewGroupReader(o.Broker, o.DLQTopic, o.GroupID, o.MaxBytes)
}
