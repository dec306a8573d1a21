package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/olexh/doctrans/internal/client/documents"
	"github.com/olexh/doctrans/internal/client/models"
)

// targetLanguages are the translations the service offers. The codes travel
// on the wire; the names are for display only.
var targetLanguages = []struct {
	Code string
	Name string
}{
	{"en", "English"},
	{"de", "German"},
	{"pl", "Polish"},
	{"fr", "French"},
	{"es", "Spanish"},
}

// uploadScreen walks the user through the upload flow: pick a file, pick a
// target language, review, submit. Cancelling at any point discards the
// draft and returns to the dashboard without side effects.
func (a *App) uploadScreen(ctx context.Context) {
	draft, ok := a.collectDraft()
	if !ok {
		fmt.Fprintln(a.out, "Upload cancelled.")
		a.view = ViewDashboard
		return
	}
	a.reviewAndSubmit(ctx, draft)
}

// collectDraft gathers the file and the target language. It reports ok=false
// when the user cancelled or input ended.
func (a *App) collectDraft() (models.UploadDraft, bool) {
	var draft models.UploadDraft

	fmt.Fprintln(a.out, "New translation. Type 'cancel' at any prompt to abort.")

	for draft.FilePath == "" {
		line, err := promptLine(a.in, a.out, "Path of the document to translate:")
		if err != nil || line == "cancel" {
			return draft, false
		}
		if line == "" {
			continue
		}
		info, err := os.Stat(line)
		if err != nil {
			fmt.Fprintf(a.out, "Cannot read %s: %v\n", line, err)
			continue
		}
		if info.IsDir() {
			fmt.Fprintf(a.out, "%s is a directory.\n", line)
			continue
		}
		draft.FilePath = line
		draft.FileName = filepath.Base(line)
		draft.Size = info.Size()
	}

	for draft.TargetLanguage == "" {
		fmt.Fprintln(a.out, "Target language:")
		for i, l := range targetLanguages {
			fmt.Fprintf(a.out, "  %d. %s\n", i+1, l.Name)
		}
		line, err := promptLine(a.in, a.out, "")
		if err != nil || line == "cancel" {
			return draft, false
		}
		if l, ok := matchLanguage(line); ok {
			draft.TargetLanguage = l
		} else {
			fmt.Fprintf(a.out, "Unknown language %q.\n", line)
		}
	}
	return draft, true
}

// matchLanguage accepts a list number, a code or a name.
func matchLanguage(input string) (string, bool) {
	for i, l := range targetLanguages {
		if input == fmt.Sprint(i+1) || input == l.Code || input == l.Name {
			return l.Code, true
		}
	}
	return "", false
}

// reviewAndSubmit shows the draft summary and loops until the upload either
// succeeds or the user cancels. A failed submission keeps the draft so the
// user can retry without re-entering everything.
func (a *App) reviewAndSubmit(ctx context.Context, draft models.UploadDraft) {
	for {
		fmt.Fprintf(a.out, "About to upload %s (%d bytes), translating %s -> %s.\n",
			draft.FileName, draft.Size, models.DefaultSourceLanguage, draft.TargetLanguage)

		line, err := promptLine(a.in, a.out, "Submit? (yes/cancel)")
		if err != nil || line == "cancel" || line == "no" {
			fmt.Fprintln(a.out, "Upload cancelled.")
			a.view = ViewDashboard
			return
		}
		if line != "yes" && line != "y" {
			continue
		}

		doc, err := a.ctrl.Create(ctx, draft)
		if err != nil {
			if a.sessionLost(ctx, err) {
				return
			}
			if errors.Is(err, documents.ErrDraftIncomplete) {
				fmt.Fprintln(a.out, "The draft is incomplete.")
			} else {
				fmt.Fprintf(a.out, "Upload failed: %s\n", userMessage(err))
			}
			continue
		}

		fmt.Fprintf(a.out, "Uploaded %s, translation started.\n", doc.Title)
		if err := a.ctrl.LoadAll(ctx); err != nil {
			if a.sessionLost(ctx, err) {
				return
			}
			a.log.Warn(ctx, "document reload after upload failed", "error", err)
		}
		a.view = ViewDashboard
		return
	}
}
