package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"censys-toolkit/internal/masterlist"
)

var (
	updateSource string
	updateMaster string
	updateMode   string
)

var updateMasterCmd = &cobra.Command{
	Use:   "update-master",
	Short: "Merge a domain list into the master list",
	Long: `Merge domains from a source file into the master list.

Modes:
  update   keep the sorted union of both lists
  append   keep the master order and add new domains at the end
  replace  overwrite the master list with the source

The source may be a text file with one domain per line, a JSON file written by
'collect', or a CSV file whose first column holds the domains.`,
	Example: `  censys-toolkit update-master --source new.txt --master master.txt --mode append`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer s.Close()
		return runUpdateMaster(updateSource, updateMaster, updateMode, s.logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(updateMasterCmd)
	updateMasterCmd.Flags().StringVarP(&updateSource, "source", "s", "", "File with the new domains (required)")
	updateMasterCmd.Flags().StringVarP(&updateMaster, "master", "m", "", "Master list to update (required)")
	updateMasterCmd.Flags().StringVar(&updateMode, "mode", "update", "Merge mode: update, append or replace")
	_ = updateMasterCmd.MarkFlagRequired("source")
	_ = updateMasterCmd.MarkFlagRequired("master")
}

func runUpdateMaster(source, master, modeName string, logger *slog.Logger, out, errOut io.Writer) error {
	mode, err := masterlist.ParseMode(modeName)
	if err != nil {
		return err
	}

	m := masterlist.New(masterlist.Options{Logger: logger})
	names, err := m.ReadSource(source)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(errOut, "%s no domains found in %s; master list left unchanged\n", color.YellowString("Warning:"), source)
		return nil
	}

	res, err := m.Update(master, names, mode)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s (%s): %d read, %d added", color.GreenString("Master list updated:"), master, mode, len(names), res.Added)
	if res.Removed > 0 {
		fmt.Fprintf(out, ", %d removed", res.Removed)
	}
	fmt.Fprintf(out, ", %d total\n", res.Total)
	return nil
}
