package broker

import (
	"time"

	"github.com/IBM/sarama"

	"saga-engine/internal/platform/config"
)

// toSaramaConfig builds a sarama.Config tuned for at-least-once delivery:
// producer acks=all for durability, consumer manual offset commit so the
// caller controls when a message is considered processed (spec.md §4.4,
// §5), grounded on the teacher's kafka.Config.ToSaramaConfig and
// DepositConsumer setup.
func toSaramaConfig(cfg config.BrokerConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Version = sarama.V3_0_0_0

	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	sc.Producer.Compression = sarama.CompressionSnappy

	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Offsets.AutoCommit.Enable = false
	sc.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()

	return sc
}
