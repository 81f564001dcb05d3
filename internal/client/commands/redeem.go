package commands

import (
	stderrors "errors"

	"github.com/spf13/cobra"

	"github.com/colonq/clonk/internal/client/errors"
	"github.com/colonq/clonk/internal/client/output"
	"github.com/colonq/clonk/internal/client/portal"
	"github.com/colonq/clonk/internal/client/validation"
)

func newRedeemCmd(a *app) *cobra.Command {
	redeemCmd := &cobra.Command{
		Use:   "redeem <name>",
		Short: "Redeem a code with the stored session",
		Long: `Submit a redemption using the session saved by 'clonk auth login'.

The input sent with the redemption defaults to "undefined" when --input is not given.

Examples:
  clonk redeem hat
  clonk redeem color --input blue`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return errors.WithCode(errors.ExitInvalidArguments, err, "")
			}
			return nil
		},
		RunE: a.runRedeem,
	}

	redeemCmd.Flags().String("input", portal.DefaultInput, "Auxiliary input for the redemption")

	return redeemCmd
}

func (a *app) runRedeem(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := validation.ValidateRedemptionName(name); err != nil {
		return errors.WithCode(errors.ExitInvalidArguments, err, "")
	}

	input, err := cmd.Flags().GetString("input")
	if err != nil {
		return errors.WithCode(errors.ExitInvalidArguments, err, "")
	}

	store, err := a.store()
	if err != nil {
		return err
	}
	creds, err := loadCredentials(cmd.ErrOrStderr(), store)
	if err != nil {
		return err
	}

	err = a.portalClient().Redeem(cmd.Context(), creds.Cookies, portal.RedeemRequest{
		Name:  name,
		Input: input,
	})
	if err != nil {
		return redeemError(err)
	}

	if a.jsonOutput() {
		return output.OutputJSON(cmd.OutOrStdout(), map[string]string{
			"name":  name,
			"input": input,
		}, nil)
	}
	output.PrintSuccess(cmd.OutOrStdout(), "Successfully redeemed")
	return nil
}

func redeemError(err error) error {
	var statusErr *portal.StatusError
	if stderrors.As(err, &statusErr) {
		return errors.FromHTTPStatus(statusErr.StatusCode, err)
	}
	return errors.WithCode(errors.ExitGeneralError, err, "")
}
