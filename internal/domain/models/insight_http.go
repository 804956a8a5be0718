package models

// Requests for insight HTTP endpoints. Defined in domain for consistency and reuse.

type ScanRequest struct {
	Force  bool   `query:"force" json:"force" default:"false"`
	Window string `query:"window" json:"window" validate:"omitempty,oneof=30d 90d 180d 365d"`
}

type AnomaliesRequest struct {
	All    bool   `query:"all" json:"all" default:"false"`
	Limit  int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
	Window string `query:"window" json:"window" validate:"omitempty,oneof=30d 90d 180d 365d"`
}

type RecurringRequest struct {
	IncludeInactive bool   `query:"include_inactive" json:"include_inactive" default:"true"`
	Frequency       string `query:"frequency" json:"frequency" validate:"omitempty,oneof=weekly monthly quarterly yearly"`
	Window          string `query:"window" json:"window" validate:"omitempty,oneof=30d 90d 180d 365d"`
}

type ExcludeMerchantRequest struct {
	MerchantName string `json:"merchant_name" validate:"required,min=1"`
}

type IngestTransactionsRequest struct {
	Transactions []TransactionPayload `json:"transactions" validate:"required,min=1,dive"`
}

// TransactionPayload is the wire form of a transaction. Type arrives
// as a string and is mapped to the closed EconType on ingest.
type TransactionPayload struct {
	ID           string  `json:"id" validate:"required"`
	Date         string  `json:"date" validate:"required"`
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	Direction    string  `json:"direction" default:"debit" validate:"oneof=debit credit"`
	Type         string  `json:"type" default:"expense" validate:"oneof=expense income excluded"`
	CategoryID   string  `json:"category_id"`
	MerchantName string  `json:"merchant_name"`
}
