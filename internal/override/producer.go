package override

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/DIMO-Network/shared"
	"github.com/IBM/sarama"
	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"
)

const (
	eventSource = "gas-price-strategy"
	eventType   = "zone.dimo.gas.price.override"
)

// Publisher announces an override so that every instance consuming the
// topic applies it.
type Publisher interface {
	Publish(price *big.Int) error
}

type kafkaPublisher struct {
	kp    sarama.SyncProducer
	topic string
}

// Publish sends price, in wei, as a Gwei override event. A nil price clears
// the override.
func (p *kafkaPublisher) Publish(price *big.Int) error {
	var data OverrideEventData
	if price != nil {
		s := decimal.NewFromBigInt(price, -9).String()
		data.GasPrice = &s
	}

	event := shared.CloudEvent[OverrideEventData]{
		ID:          ksuid.New().String(),
		Source:      eventSource,
		Subject:     "override",
		SpecVersion: "1.0",
		Time:        time.Now(),
		Type:        eventType,
		Data:        data,
	}

	bs, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("couldn't marshal override event: %w", err)
	}

	_, _, err = p.kp.SendMessage(
		&sarama.ProducerMessage{
			Topic: p.topic,
			Value: sarama.ByteEncoder(bs),
		},
	)
	if err != nil {
		return fmt.Errorf("failed sending override event: %w", err)
	}

	return nil
}

func NewKafkaPublisher(topic string, client sarama.Client) (Publisher, error) {
	kp, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		return nil, err
	}

	return &kafkaPublisher{kp: kp, topic: topic}, nil
}
