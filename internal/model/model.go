package model

import "time"

// Sample is the set of raw counters pulled from one dashboard response.
type Sample struct {
	SystemUptimeSeconds float32
	RxRate              float32 // bytes/s
	TxRate              float32 // bytes/s
	MaxRxRate           float32 // bytes/s
	MaxTxRate           float32 // bytes/s
	MonthlyBytes        float32
}

// Rate is one traffic direction expressed in every published unit.
type Rate struct {
	Bytes  float32
	MBytes float32
	MBit   float32
}

// Snapshot is the complete set of published values as of one successful poll.
type Snapshot struct {
	UpdatedAt time.Time

	SystemUptime          float32
	SystemUptimeFormatted string

	Download    Rate
	MaxDownload Rate
	Upload      Rate
	MaxUpload   Rate

	MonthlyTrafficBytes     float32
	MonthlyTrafficFormatted string
}

// Placeholder is shown for text values until the first poll succeeds.
const Placeholder = "-"

// EmptySnapshot returns the state published before any poll has completed.
func EmptySnapshot() Snapshot {
	return Snapshot{
		SystemUptimeFormatted:   Placeholder,
		MonthlyTrafficFormatted: Placeholder,
	}
}

// Entry is one named value of a snapshot as the panel binds to it.
// Value is either a float32 or a string.
type Entry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Unit        string `json:"unit,omitempty"`
	Value       any    `json:"value"`
}

// FailureKind classifies a failed poll.
type FailureKind string

const (
	FailureNetwork    FailureKind = "network"
	FailureHTTPStatus FailureKind = "http_status"
	FailureDecode     FailureKind = "decode"
)
