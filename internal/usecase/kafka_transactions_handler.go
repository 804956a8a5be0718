package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"SpendLens/internal/domain/models"
	domrepo "SpendLens/internal/domain/repository"
	pkgkafka "SpendLens/pkg/kafka"
	"SpendLens/pkg/util"
)

// KafkaTransactionsHandler consumes transaction payloads from the
// ingest topic and writes them to storage.
type KafkaTransactionsHandler struct {
	topic   string
	proc    *IngestProcessor
	metrics domrepo.Metrics
}

func NewKafkaTransactionsHandler(topic string, proc *IngestProcessor, metrics domrepo.Metrics) *KafkaTransactionsHandler {
	return &KafkaTransactionsHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaTransactionsHandler) Topic() string { return h.topic }

// Handle accepts either a single TransactionPayload object or an array
// of them in one message.
func (h *KafkaTransactionsHandler) Handle(ctx context.Context, b []byte) error {
	var payloads []models.TransactionPayload
	if err := json.Unmarshal(b, &payloads); err != nil {
		var single models.TransactionPayload
		if err := json.Unmarshal(b, &single); err != nil {
			h.metrics.RecordError("consumer_unmarshal")
			return fmt.Errorf("decode ingest message: %w", err)
		}
		payloads = []models.TransactionPayload{single}
	}

	txs := make([]*models.Transaction, 0, len(payloads))
	for i := range payloads {
		t, err := PayloadToTransaction(&payloads[i])
		if err != nil {
			h.metrics.RecordError("consumer_payload")
			continue
		}
		txs = append(txs, t)
	}
	return h.proc.ProcessBatch(ctx, "kafka", txs)
}

// PayloadToTransaction maps the wire form onto the domain model.
func PayloadToTransaction(p *models.TransactionPayload) (*models.Transaction, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("payload requires id")
	}
	date, ok := util.ParseTime(p.Date)
	if !ok {
		return nil, fmt.Errorf("payload %q: unparseable date %q", p.ID, p.Date)
	}

	direction := models.Direction(p.Direction)
	if direction != models.DirectionCredit {
		direction = models.DirectionDebit
	}
	amount := p.Amount
	// Keep the sign convention consistent with the direction.
	if direction == models.DirectionDebit && amount > 0 {
		amount = -amount
	}

	return &models.Transaction{
		ID:           p.ID,
		Date:         date.UTC(),
		Description:  p.Description,
		Amount:       amount,
		Direction:    direction,
		Type:         models.ParseEconType(p.Type),
		CategoryID:   p.CategoryID,
		MerchantName: p.MerchantName,
	}, nil
}

var _ pkgkafka.MessageHandler = (*KafkaTransactionsHandler)(nil)
