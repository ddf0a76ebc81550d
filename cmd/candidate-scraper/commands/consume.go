package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/candidate-contact-scraper/internal/events"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	consumeGroup string
	consumeName  string
)

func init() {
	consumeCmd.Flags().StringVar(&consumeGroup, "group", events.DefaultConsumerGroup, "Consumer group to read with.")
	consumeCmd.Flags().StringVar(&consumeName, "name", "consumer-1", "Consumer name inside the group.")
	rootCmd.AddCommand(consumeCmd)
}

var consumeCmd = &cobra.Command{
	Use:   "consume [--group <name>] [--name <consumer>]",
	Short: "Tails the profile event stream and logs each scraped profile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		consumer := events.NewConsumer(rdb, events.ConsumerConfig{
			Stream: cfg.Redis.Stream,
			Group:  consumeGroup,
			Name:   consumeName,
		}, func(_ context.Context, p *events.ProfileScrapedPayload) error {
			log.Info("profile event",
				"profile_url", p.ProfileURL,
				"name", p.Name,
				"has_contact", p.HasContact(),
				"search_query", p.SearchQuery,
				"scraped_at", p.ScrapedAt)
			return nil
		}, log)

		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
