// Package override applies operator gas price overrides received over Kafka.
package override

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/DIMO-Network/gas-price-strategy/internal/gasprice"
	"github.com/DIMO-Network/gas-price-strategy/internal/metrics"
	"github.com/DIMO-Network/shared"
	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// Updater is satisfied by *gasprice.Override.
type Updater interface {
	Update(price *big.Int)
}

// OverrideEventData sets the override to GasPrice, in Gwei. A null, empty or
// blank GasPrice clears it.
type OverrideEventData struct {
	GasPrice *string `json:"gasPrice"`
}

type consumer struct {
	logger   *zerolog.Logger
	override Updater
}

func (c *consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

func (c *consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			logger := c.logger.With().Int32("partition", msg.Partition).Int64("offset", msg.Offset).Logger()

			if err := c.handle(msg.Value, &logger); err != nil {
				logger.Err(err).Msg("Couldn't apply override, skipping.")
			}

			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *consumer) handle(value []byte, logger *zerolog.Logger) error {
	var event shared.CloudEvent[OverrideEventData]
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to parse override event: %w", err)
	}

	if event.Data.GasPrice == nil || strings.TrimSpace(*event.Data.GasPrice) == "" {
		c.override.Update(nil)
		metrics.OverrideUpdatesTotal.WithLabelValues("kafka").Inc()
		logger.Info().Str("eventId", event.ID).Msg("Cleared gas price override.")
		return nil
	}

	price, err := gasprice.ParseGwei(*event.Data.GasPrice)
	if err != nil {
		return err
	}

	c.override.Update(price)
	metrics.OverrideUpdatesTotal.WithLabelValues("kafka").Inc()
	logger.Info().Str("eventId", event.ID).Str("gasPrice", price.String()).Msg("Set gas price override.")

	return nil
}

// Consume applies override events from topic until ctx is canceled.
func Consume(ctx context.Context, name string, topic string, kafkaClient sarama.Client, logger *zerolog.Logger, override Updater) error {
	group, err := sarama.NewConsumerGroupFromClient(name, kafkaClient)
	if err != nil {
		return err
	}
	defer group.Close()

	consumer := &consumer{logger: logger, override: override}

	for {
		err := group.Consume(ctx, []string{topic}, consumer)
		if err != nil {
			logger.Err(err).Msg("Consumer group session did not terminate gracefully.")
		}
		if ctx.Err() != nil {
			// Context canceled, so quit.
			return nil
		}
	}
}
