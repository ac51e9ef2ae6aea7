package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan re-derives client balances from their
	// transactions and reports drift.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
)

// LedgerIntegrityPayload narrows the scan to one client when ClientID is set.
type LedgerIntegrityPayload struct {
	ClientID *int64 `json:"client_id,omitempty"`
}

// NewLedgerIntegrityTask constructs an Asynq task for the integrity scan.
func NewLedgerIntegrityTask(payload LedgerIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, data), nil
}
