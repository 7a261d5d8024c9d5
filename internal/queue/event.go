// Package queue defines message payloads exchanged over the message
// broker, plus the background consumer that files them into the ops log.
package queue

// NewBookingsEvent is published when a poll cycle observes that the
// booking total grew. It carries enough for downstream consumers to
// notify staff without querying the remote API themselves.
type NewBookingsEvent struct {
    AgencyID      string `json:"agency_id"`
    PreviousTotal int    `json:"previous_total"`
    CurrentTotal  int    `json:"current_total"`
    DetectedAt    string `json:"detected_at"`
}
