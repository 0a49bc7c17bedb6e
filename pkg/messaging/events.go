package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventStockReceived    = "ledger.stock.received"
	EventStockDispensed   = "ledger.stock.dispensed"
	EventPurchaseRecorded = "ledger.purchase.recorded"
	EventAlertRaised      = "ledger.alert.raised"
)

// ExchangeLedgerEvents is the topic exchange all ledger events go through.
// Downstream consumers (message formatting, WhatsApp relay, dashboards)
// bind to it; the ledger has no knowledge of delivery channels.
const ExchangeLedgerEvents = "ledger.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// StockReceivedEvent is published when intake creates or restocks a batch
type StockReceivedEvent struct {
	BatchID     int64  `json:"batch_id"`
	ItemName    string `json:"item_name"`
	Quantity    int    `json:"quantity"`
	NewQuantity int    `json:"new_quantity"`
	Expiry      string `json:"expiry"`
	Restocked   bool   `json:"restocked"`
}

// StockDispensedEvent is published when a prescription line consumes stock
type StockDispensedEvent struct {
	DispenseID  int64           `json:"dispense_id"`
	VisitID     int64           `json:"visit_id"`
	BatchID     int64           `json:"batch_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	NewQuantity int             `json:"new_quantity"`
}

// PurchaseRecordedEvent is published when an acquisition cost is recorded
type PurchaseRecordedEvent struct {
	PurchaseID   int64           `json:"purchase_id"`
	BatchID      int64           `json:"batch_id"`
	PurchaseDate string          `json:"purchase_date"`
	Quantity     int             `json:"quantity"`
	TotalCost    decimal.Decimal `json:"total_cost"`
}

// AlertRaisedEvent carries one (category, payload) alert tuple to the
// notification sink
type AlertRaisedEvent struct {
	Category string `json:"category"`
	Subject  string `json:"subject"`
	Detail   string `json:"detail"`
}
