// Package trace publishes simulation trace points to Kafka, grounded on this
// codebase's location-service sendToKafka idiom: a kafka.Writer with a
// least-bytes balancer, JSON-encoded messages, best-effort delivery.
package trace

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/ubi-africa/dispatch-sim/internal/sim"
)

// KafkaSink implements sim.TraceSink, publishing every match and tick point to
// its own topic so an external consumer can plot cumulative D1/D2 over virtual
// time, per spec.md §6's optional plotting output.
type KafkaSink struct {
	matchWriter *kafka.Writer
	tickWriter  *kafka.Writer
	runID       string
}

// NewKafkaSink constructs writers against brokers for runID's match and tick
// topics.
func NewKafkaSink(brokers, runID string) *KafkaSink {
	return &KafkaSink{
		matchWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers),
			Topic:    "dispatch-sim-matches",
			Balancer: &kafka.LeastBytes{},
		},
		tickWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers),
			Topic:    "dispatch-sim-ticks",
			Balancer: &kafka.LeastBytes{},
		},
		runID: runID,
	}
}

// Close closes both underlying writers.
func (k *KafkaSink) Close() error {
	err1 := k.matchWriter.Close()
	err2 := k.tickWriter.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

type matchMessage struct {
	RunID        string  `json:"run_id"`
	TimestampUTC int64   `json:"timestamp_unix"`
	CumulativeD1 float64 `json:"cumulative_d1_minutes"`
	CumulativeD2 float64 `json:"cumulative_d2_minutes"`
}

type tickMessage struct {
	RunID             string `json:"run_id"`
	TimestampUTC      int64  `json:"timestamp_unix"`
	WaitingPassengers int    `json:"waiting_passengers"`
	AvailableDrivers  int    `json:"available_drivers"`
}

// OnMatch implements sim.TraceSink.
func (k *KafkaSink) OnMatch(p sim.MatchPoint) {
	payload, err := json.Marshal(matchMessage{
		RunID:        k.runID,
		TimestampUTC: p.Timestamp.Unix(),
		CumulativeD1: p.CumulativeD1,
		CumulativeD2: p.CumulativeD2,
	})
	if err != nil {
		log.Printf("trace: marshal match point: %v", err)
		return
	}
	if err := k.matchWriter.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(k.runID),
		Value: payload,
	}); err != nil {
		log.Printf("trace: write match point: %v", err)
	}
}

// OnTick implements sim.TraceSink.
func (k *KafkaSink) OnTick(p sim.TickPoint) {
	payload, err := json.Marshal(tickMessage{
		RunID:             k.runID,
		TimestampUTC:      p.Timestamp.Unix(),
		WaitingPassengers: p.WaitingPassengers,
		AvailableDrivers:  p.AvailableDrivers,
	})
	if err != nil {
		log.Printf("trace: marshal tick point: %v", err)
		return
	}
	if err := k.tickWriter.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(k.runID),
		Value: payload,
	}); err != nil {
		log.Printf("trace: write tick point: %v", err)
	}
}
