// Package models holds the client-side data shapes: the session, the
// view-ready document, the transient upload draft and the wire records
// returned by the backend.
package models

import "time"

// Status is the translation state of a document as reported by the backend.
// A document only ever moves processing -> completed or processing -> failed;
// the client has no authority to invent a terminal state on its own.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultSourceLanguage is assumed for every uploaded document; the backend
// does not report a source language yet.
const DefaultSourceLanguage = "Ukrainian"

// Document is a unit of translation work tracked from submission through
// terminal status. Views receive copies; the canonical collection is owned
// by the documents controller.
type Document struct {
	ID                 string
	Title              string
	Type               string
	CreatedAt          time.Time
	Status             Status
	SourceLanguage     string
	TargetLanguage     string
	OriginalAssetRef   string
	TranslatedAssetRef string // empty when no translation is available
}

// Terminal reports whether the document reached a final state.
func (d Document) Terminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed
}

// Degraded reports a completed document whose translated asset reference is
// missing. The backend treats these two fields inconsistently; the client
// renders such documents as completed but refuses to fetch the translation.
func (d Document) Degraded() bool {
	return d.Status == StatusCompleted && d.TranslatedAssetRef == ""
}
