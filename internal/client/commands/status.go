package commands

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/colonq/clonk/internal/client/auth"
	"github.com/colonq/clonk/internal/client/errors"
	"github.com/colonq/clonk/internal/client/output"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored credentials",
		Long: `Show which user the stored session belongs to and where it is kept.

Does not contact the portal; an expired session only shows up when redeeming.`,
		Args: noArgs,
		RunE: a.runStatus,
	}
}

func (a *app) runStatus(cmd *cobra.Command, args []string) error {
	store, err := a.store()
	if err != nil {
		return err
	}

	creds, err := loadCredentials(cmd.ErrOrStderr(), store)
	if err != nil {
		return err
	}

	cookieCount := 0
	if cookies, err := http.ParseCookie(creds.Cookies); err == nil {
		cookieCount = len(cookies)
	}

	if a.jsonOutput() {
		return output.OutputJSON(cmd.OutOrStdout(), map[string]interface{}{
			"user":        creds.Username,
			"credentials": store.Path(),
			"cookies":     cookieCount,
		}, nil)
	}

	tw := output.NewTableWriter(cmd.OutOrStdout())
	tw.WriteHeader("USER", "COOKIES", "CREDENTIALS")
	tw.WriteRow(creds.Username, strconv.Itoa(cookieCount), store.Path())
	return tw.Flush()
}

// loadCredentials reads the stored record, mapping a missing file to an auth error.
// A record readable by other users is still used, with a warning on w.
func loadCredentials(w io.Writer, store *auth.Store) (*auth.Credentials, error) {
	creds, err := store.Load()
	if err != nil {
		if stderrors.Is(err, auth.ErrNotFound) {
			return nil, errors.WithCode(errors.ExitAuthError, err, "not logged in. Run 'clonk auth login' first")
		}
		return nil, errors.WithCode(errors.ExitGeneralError, err, "failed to load credentials")
	}

	if err := store.CheckPermissions(); err != nil {
		output.PrintWarning(w, err.Error())
	}
	return creds, nil
}
