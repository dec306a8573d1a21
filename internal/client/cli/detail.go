package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olexh/doctrans/internal/client/assets"
	"github.com/olexh/doctrans/internal/client/models"
)

// detailScreen shows one document side by side: the original binary and,
// when the translation is completed, the translated one. Both are fetched
// fresh on entry and released when the screen is left, whichever way.
func (a *App) detailScreen(ctx context.Context) {
	if a.selected == nil {
		a.view = ViewDashboard
		return
	}
	doc := *a.selected

	original, translated := a.fetchPanes(ctx, doc)
	defer func() {
		if err := original.Release(); err != nil {
			a.log.Warn(ctx, "failed to release original asset", "error", err)
		}
		if err := translated.Release(); err != nil {
			a.log.Warn(ctx, "failed to release translated asset", "error", err)
		}
	}()
	if a.view != ViewDetail {
		// fetchPanes hit a session expiry.
		return
	}

	for a.view == ViewDetail {
		cmd, args, err := a.readCommand("")
		if err != nil || cmd == "back" || cmd == "exit" || cmd == "quit" {
			a.selected = nil
			a.view = ViewDashboard
			return
		}

		switch cmd {
		case "":
		case "save":
			a.saveAsset(args, original, translated)
		case "refresh":
			updated, rerr := a.ctrl.Refresh(ctx, doc.ID)
			if rerr != nil {
				if a.sessionLost(ctx, rerr) {
					return
				}
				fmt.Fprintf(a.out, "Refresh failed: %s\n", userMessage(rerr))
				continue
			}
			if updated.Status != doc.Status {
				// Re-enter the screen so the translated pane reflects the
				// new status.
				a.selected = updated
				return
			}
			a.renderDetail(*updated, original, translated)
		case "help":
			fmt.Fprintln(a.out, "Commands: save original|translated <dest>, refresh, back")
		default:
			fmt.Fprintf(a.out, "Unknown command %q. Try: help\n", cmd)
		}
	}
}

// fetchPanes retrieves the two asset handles and prints the detail header.
// Either handle may come back nil when its binary is unavailable; the pane
// then shows a placeholder instead.
func (a *App) fetchPanes(ctx context.Context, doc models.Document) (original, translated *assets.Handle) {
	var err error
	original, err = a.assets.Fetch(ctx, doc, assets.KindOriginal)
	if err != nil {
		if a.sessionLost(ctx, err) {
			return nil, nil
		}
		a.log.Warn(ctx, "original fetch failed", "id", doc.ID, "error", err)
	}

	if doc.Status == models.StatusCompleted && !doc.Degraded() {
		translated, err = a.assets.Fetch(ctx, doc, assets.KindTranslated)
		if err != nil {
			if a.sessionLost(ctx, err) {
				return original, nil
			}
			a.log.Warn(ctx, "translated fetch failed", "id", doc.ID, "error", err)
		}
	}

	a.renderDetail(doc, original, translated)
	return original, translated
}

func (a *App) renderDetail(doc models.Document, original, translated *assets.Handle) {
	fmt.Fprintf(a.out, "%s  (%s, %s -> %s, %s)\n",
		doc.Title, doc.CreatedAt.Format(dateFormat), doc.SourceLanguage, doc.TargetLanguage, doc.Status)

	if original != nil {
		fmt.Fprintf(a.out, "  original:   %s\n", original.Path())
	} else {
		fmt.Fprintln(a.out, "  original:   could not be loaded")
	}

	switch {
	case translated != nil:
		fmt.Fprintf(a.out, "  translated: %s\n", translated.Path())
	case doc.Status == models.StatusProcessing:
		fmt.Fprintln(a.out, "  translated: still processing")
	case doc.Status == models.StatusFailed:
		fmt.Fprintln(a.out, "  translated: translation failed")
	default:
		fmt.Fprintln(a.out, "  translated: not available")
	}
}

// saveAsset copies one of the fetched binaries to a destination chosen by
// the user. The handle stays owned by the screen.
func (a *App) saveAsset(args []string, original, translated *assets.Handle) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: save original|translated <dest>")
		return
	}

	var src *assets.Handle
	switch args[0] {
	case string(assets.KindOriginal):
		src = original
	case string(assets.KindTranslated):
		src = translated
	default:
		fmt.Fprintf(a.out, "Unknown asset %q.\n", args[0])
		return
	}
	if src == nil {
		fmt.Fprintf(a.out, "The %s document is not available.\n", args[0])
		return
	}

	if err := copyFile(src.Path(), args[1]); err != nil {
		fmt.Fprintf(a.out, "Save failed: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Saved %s to %s\n", args[0], args[1])
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, cpErr := io.Copy(out, in)
	if err := out.Close(); cpErr == nil {
		cpErr = err
	}
	if cpErr != nil {
		_ = os.Remove(dst)
	}
	return cpErr
}
