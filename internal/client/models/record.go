package models

import "time"

// DocumentRecord mirrors a single entry of the backend's document list
// payload. Dates travel as epoch seconds, translated_url is null until a
// translation exists (which decodes to the empty string here).
type DocumentRecord struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Type           string `json:"type"`
	Date           int64  `json:"date"`
	Status         string `json:"status"`
	OriginalURL    string `json:"original_url"`
	TranslatedURL  string `json:"translated_url"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// ToDocument maps the wire record to the view-ready shape. The backend does
// not report languages for older records, so the source language falls back
// to DefaultSourceLanguage and the target to English.
func (r DocumentRecord) ToDocument() Document {
	target := r.TargetLanguage
	if target == "" {
		target = "English"
	}
	return Document{
		ID:                 r.ID,
		Title:              r.Title,
		Type:               r.Type,
		CreatedAt:          time.Unix(r.Date, 0),
		Status:             Status(r.Status),
		SourceLanguage:     DefaultSourceLanguage,
		TargetLanguage:     target,
		OriginalAssetRef:   r.OriginalURL,
		TranslatedAssetRef: r.TranslatedURL,
	}
}
