package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/olexh/doctrans/internal/client/models"
)

const dateFormat = "02 Jan 2006"

// dashboardScreen lists documents, keeps the background poller alive while
// anything is still processing and dispatches into the upload and detail
// screens. It returns true when the user asked to quit.
func (a *App) dashboardScreen(ctx context.Context) bool {
	a.ensurePolling(ctx)
	a.renderDocuments()

	for a.view == ViewDashboard {
		cmd, args, err := a.readCommand("")
		if err != nil {
			return true
		}

		// The poller runs while this loop is blocked on input; a 401 it hit
		// in the background must win over whatever was typed.
		if a.poller.SessionExpired() {
			fmt.Fprintln(a.out, "Session expired. Please log in again.")
			a.forceLogin(ctx)
			return false
		}

		switch cmd {
		case "":
		case "list", "l":
			a.renderDocuments()
		case "filter":
			a.applyFilter(args)
		case "refresh":
			if err := a.ctrl.LoadAll(ctx); err != nil {
				if a.sessionLost(ctx, err) {
					return false
				}
				fmt.Fprintf(a.out, "Refresh failed: %s\n", userMessage(err))
				continue
			}
			a.ensurePolling(ctx)
			a.renderDocuments()
		case "open":
			a.openDocument(args)
		case "new":
			a.poller.Stop()
			a.view = ViewUpload
		case "logout":
			a.poller.Stop()
			if err := a.store.Clear(ctx); err != nil {
				a.log.Error(ctx, "failed to clear session", "error", err)
			}
			a.session = nil
			a.view = ViewLogin
			fmt.Fprintln(a.out, "Logged out.")
		case "help":
			fmt.Fprintln(a.out, "Commands: list, filter <all|processing|completed|failed>, open <n>, new, refresh, logout, exit")
		case "exit", "quit":
			return true
		default:
			fmt.Fprintf(a.out, "Unknown command %q. Try: help\n", cmd)
		}
	}
	return false
}

// visibleDocuments applies the active status filter.
func (a *App) visibleDocuments() []models.Document {
	if a.filter == filterAll {
		return a.ctrl.Snapshot()
	}
	return a.ctrl.Filter(models.Status(a.filter))
}

func (a *App) applyFilter(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: filter <all|processing|completed|failed>")
		return
	}
	switch args[0] {
	case filterAll, string(models.StatusProcessing), string(models.StatusCompleted), string(models.StatusFailed):
		a.filter = args[0]
		a.renderDocuments()
	default:
		fmt.Fprintf(a.out, "Unknown filter %q\n", args[0])
	}
}

func (a *App) renderDocuments() {
	docs := a.visibleDocuments()
	if len(docs) == 0 {
		if a.filter == filterAll {
			fmt.Fprintln(a.out, "No documents yet. Use 'new' to upload one.")
		} else {
			fmt.Fprintf(a.out, "No %s documents.\n", a.filter)
		}
		return
	}

	tw := tabwriter.NewWriter(a.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tDATE\tLANGUAGE\tSTATUS")
	for i, d := range docs {
		status := string(d.Status)
		if d.Degraded() {
			status += " (translation missing)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s -> %s\t%s\n",
			i+1, d.Title, d.CreatedAt.Format(dateFormat), d.SourceLanguage, d.TargetLanguage, status)
	}
	tw.Flush()
}

func (a *App) openDocument(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: open <n>")
		return
	}
	n, err := strconv.Atoi(args[0])
	docs := a.visibleDocuments()
	if err != nil || n < 1 || n > len(docs) {
		fmt.Fprintf(a.out, "No document #%s in the current list.\n", args[0])
		return
	}

	doc := docs[n-1]
	a.selected = &doc
	a.poller.Stop()
	a.view = ViewDetail
}
