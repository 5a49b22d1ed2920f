package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	xhttp "SmartEnergy/pkg/http"
	pkgkafka "SmartEnergy/pkg/kafka"
)

// KafkaReadingsHandler ingests readings published by remote meters.
// Message schema: {"time": "...", "power": 420.5, "meter": "m1"}.
type KafkaReadingsHandler struct {
	topic   string
	meter   *MeterUseCase
	metrics drepo.Metrics
}

// NewKafkaReadingsHandler creates a handler feeding topic messages into meter.
func NewKafkaReadingsHandler(topic string, meter *MeterUseCase, metrics drepo.Metrics) *KafkaReadingsHandler {
	return &KafkaReadingsHandler{topic: topic, meter: meter, metrics: metrics}
}

var _ pkgkafka.MessageHandler = (*KafkaReadingsHandler)(nil)

func (h *KafkaReadingsHandler) Topic() string { return h.topic }

func (h *KafkaReadingsHandler) Handle(ctx context.Context, b []byte) error {
	var req models.ReadingRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode reading: %w", err)
	}
	if res := xhttp.ValidateStruct(ctx, &req); res != nil {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("decode reading: %w", xhttp.ValidationErr(res))
	}

	source := pkgkafka.SourceFrom(ctx, models.SourceKafka)
	if _, err := h.meter.Ingest(ctx, source, req.Reading()); err != nil {
		return fmt.Errorf("ingest reading: %w", err)
	}
	return nil
}
