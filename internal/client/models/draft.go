package models

// UploadDraft is the transient state of the upload flow. It is scoped to a
// single pass through the flow and discarded on completion or cancellation.
type UploadDraft struct {
	FilePath       string
	FileName       string
	Size           int64
	TargetLanguage string
}

// Ready reports whether the draft may be submitted: both the file and the
// target language must be set.
func (d UploadDraft) Ready() bool {
	return d.FilePath != "" && d.TargetLanguage != ""
}
