package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Check credentials and show the remaining query quota",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer s.Close()

		client, err := newClient(s.cfg)
		if err != nil {
			return err
		}
		account, err := client.Account(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", color.GreenString("Authenticated as"), account.Login)
		if account.Email != "" {
			fmt.Fprintf(out, "Email:   %s\n", account.Email)
		}
		q := account.Quota
		fmt.Fprintf(out, "Quota:   %d of %d queries used", q.Used, q.Allowance)
		if q.Allowance > 0 {
			fmt.Fprintf(out, " (%d left)", q.Allowance-q.Used)
		}
		fmt.Fprintln(out)
		if q.ResetsAt != "" {
			fmt.Fprintf(out, "Resets:  %s\n", q.ResetsAt)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
}
