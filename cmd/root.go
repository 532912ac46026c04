// Package cmd implements the datagrind CLI: a single cobra command tree
// exposing record/view/query subcommands over the config, recorder and
// analyzer packages (§4.16).
package cmd

import (
	"io"
	"log"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bmerry/datagrind/config"
)

var cfgDir string

// RootCmd is the base command; record/view/query attach themselves to it
// via their own init().
var RootCmd = &cobra.Command{
	Use:           "datagrind",
	Short:         "Record and analyze memory-access traces",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// UsageError marks a fail-fast CLI usage mistake (§7): unknown option,
// wrong argument count, missing file. Execute maps it to exit code 2.
type UsageError struct {
	msg string
}

func NewUsageError(msg string) *UsageError { return &UsageError{msg: msg} }
func (e *UsageError) Error() string        { return e.msg }

// Execute runs RootCmd and translates the returned error into a process
// exit code: 0 success, 2 usage error, 1 any other failure.
func Execute() int {
	err := RootCmd.Execute()
	switch {
	case err == nil:
		return 0
	case isUsageError(err):
		return 2
	default:
		log.Println(err)
		return 1
	}
}

func isUsageError(err error) bool {
	_, ok := err.(*UsageError)
	return ok
}

func init() {
	cobra.OnInitialize(func() { viper.AutomaticEnv() })
	RootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config dir (default is ./.datagrind)")
}

func loadConfig() (*config.Config, error) {
	c := config.NewConfig(cfgDir)
	if err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}

// withConfig wraps a subcommand's RunE so config is loaded before and
// persisted (if changed) after, matching the teacher's wrap/getConfig
// pair in cmd/root.go.
func withConfig(fn func(c *config.Config, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		if err := fn(c, cmd, args); err != nil {
			return err
		}
		return c.SaveIfWant()
	}
}

func defaultTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetCenterSeparator(" ")
	table.SetRowSeparator("-")
	table.SetColWidth(120)
	return table
}
