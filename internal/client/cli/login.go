package cli

import (
	"context"
	"fmt"

	"github.com/olexh/doctrans/internal/client/models"
)

// loginScreen runs the prompt loop of the unauthenticated screen. It returns
// true when the user asked to quit.
func (a *App) loginScreen(ctx context.Context) bool {
	fmt.Fprintln(a.out, "doctrans: sign in with your identity token (login) or exit.")

	for a.view == ViewLogin {
		cmd, _, err := a.readCommand("")
		if err != nil {
			return true
		}

		switch cmd {
		case "":
		case "login":
			a.doLogin(ctx)
		case "help":
			fmt.Fprintln(a.out, "Commands: login, exit")
		case "exit", "quit":
			return true
		default:
			fmt.Fprintf(a.out, "Unknown command %q. Try: login, exit\n", cmd)
		}
	}
	return false
}

func (a *App) doLogin(ctx context.Context) {
	token, err := promptSecret(a.out, "Identity token: ")
	if err != nil {
		fmt.Fprintf(a.out, "Could not read token: %v\n", err)
		return
	}
	if token == "" {
		fmt.Fprintln(a.out, "Empty token, aborting.")
		return
	}

	res, err := a.api.Login(ctx, token)
	if err != nil {
		fmt.Fprintf(a.out, "Login failed: %s\n", userMessage(err))
		return
	}

	sess := &models.Session{Credential: res.SessionToken, User: res.User}
	if err := a.store.Save(ctx, sess); err != nil {
		// The backend accepted the login, so carry on in memory; only the
		// next start of the client will ask again.
		a.log.Error(ctx, "failed to persist session", "error", err)
		fmt.Fprintln(a.out, "Warning: session could not be saved and will not survive a restart.")
	}
	a.session = sess

	if err := a.ctrl.LoadAll(ctx); err != nil {
		if a.sessionLost(ctx, err) {
			return
		}
		a.log.Warn(ctx, "document load after login failed", "error", err)
	}

	fmt.Fprintf(a.out, "Logged in as %s <%s>\n", sess.User.Name, sess.User.Email)
	a.view = ViewDashboard
}
