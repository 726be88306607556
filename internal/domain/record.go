package domain

import "time"

// RecordStatus enumerates lifecycle states for intake records.
type RecordStatus string

const (
	RecordStatusPending    RecordStatus = "pending"
	RecordStatusInProgress RecordStatus = "in_progress"
	RecordStatusFailed     RecordStatus = "failed"
	RecordStatusDone       RecordStatus = "done"
)

// FertilizerEntry is one requested fertilizer line: a catalog code and a quantity.
type FertilizerEntry struct {
	Code     string `json:"fertilizer"`
	Quantity int    `json:"quantity"`
}

// PendingRecord is a registration intake awaiting CRM synchronization.
// A record transitions pending -> in_progress exactly once per poll
// observation, regardless of the downstream CRM outcome, and never
// transitions back.
type PendingRecord struct {
	ID           string
	UserRef      string
	Status       RecordStatus
	FarmName     string
	FarmSize     string
	LocationName string
	Latitude     float64
	Longitude    float64
	Crops        []string
	Fertilizers  []FertilizerEntry
	Details      string
	CreatedAt    time.Time
}
