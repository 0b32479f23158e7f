package models

import "time"

// ParsedDocument is the persisted cache record for one parsed PDF.
// It is written once per cache key and never updated.
type ParsedDocument struct {
	Fingerprint   string    `json:"fingerprint" firestore:"fingerprint"`
	PolicyVersion string    `json:"policyVersion,omitempty" firestore:"policyVersion,omitempty"`
	Content       string    `json:"content" firestore:"content"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt"`
}
