package commands

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/colonq/clonk/internal/client/auth"
	"github.com/colonq/clonk/internal/client/errors"
	"github.com/colonq/clonk/internal/client/output"
	"github.com/colonq/clonk/internal/client/portal"
	"github.com/colonq/clonk/internal/client/prompts"
	"github.com/colonq/clonk/internal/client/validation"
)

func newAuthCmd(a *app) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage portal credentials",
		Long:  `Log in to the colonq portal and inspect the stored session.`,
	}

	authCmd.AddCommand(newLoginCmd(a))
	authCmd.AddCommand(newStatusCmd(a))

	return authCmd
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the portal",
		Long: `Authenticate with the portal and store the session.

Username and password are read from standard input. The password is not echoed
when standard input is a terminal.

The username, password and session cookies are written to ~/.clonk/auth with
0600 permissions. A successful login replaces any existing credentials; a failed
login leaves them untouched.`,
		Args: noArgs,
		RunE: a.runLogin,
	}
}

func (a *app) runLogin(cmd *cobra.Command, args []string) error {
	store, err := a.store()
	if err != nil {
		return err
	}

	// Prompt for credentials. JSON output keeps stdout for the result document.
	promptOut := cmd.OutOrStdout()
	if a.jsonOutput() {
		promptOut = cmd.ErrOrStderr()
	}
	p := prompts.NewPrompter(cmd.InOrStdin(), promptOut)
	username, err := p.PromptUsername()
	if err != nil {
		return errors.WithCode(errors.ExitGeneralError, err, "")
	}
	password, err := p.PromptPassword()
	if err != nil {
		return errors.WithCode(errors.ExitGeneralError, err, "")
	}
	if err := validation.ValidateCredentials(username, password); err != nil {
		return errors.WithCode(errors.ExitInvalidArguments, err, "")
	}

	cookies, err := a.portalClient().Login(cmd.Context(), username, password)
	if err != nil {
		return loginError(err)
	}

	// Authentication successful - store credentials
	creds := &auth.Credentials{
		Username: username,
		Password: password,
		Cookies:  cookies,
	}
	if err := store.Save(creds); err != nil {
		return errors.WithCode(errors.ExitGeneralError, err, "failed to save credentials")
	}

	a.logger.WithField("path", store.Path()).Debug("credentials saved")

	if a.jsonOutput() {
		return output.OutputJSON(cmd.OutOrStdout(), map[string]string{
			"user":        username,
			"credentials": store.Path(),
		}, nil)
	}
	output.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Successfully logged in as %s", username))
	return nil
}

func loginError(err error) error {
	if stderrors.Is(err, portal.ErrNoCookies) {
		return errors.WithCode(errors.ExitAuthError, err, "authentication failed")
	}

	var statusErr *portal.StatusError
	if stderrors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.WithCode(errors.ExitAuthError, err, "authentication failed: invalid credentials")
		default:
			return errors.WithCode(errors.MapHTTPStatusToExitCode(statusErr.StatusCode), err, "")
		}
	}

	return errors.WithCode(errors.ExitGeneralError, err, "")
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return errors.WithCode(errors.ExitInvalidArguments, err, "")
	}
	return nil
}
