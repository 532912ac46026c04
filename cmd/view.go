package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	tui "github.com/yuuki0xff/tui-go"

	"github.com/bmerry/datagrind/analyzer/access"
	"github.com/bmerry/datagrind/config"
	"github.com/bmerry/datagrind/internal/viewer"
)

var (
	viewRanges     []string
	viewEvents     []string
	viewMallocOnly bool
	viewRatio      float64
)

var viewCmd = &cobra.Command{
	Use:                   "view <trace-file>",
	Short:                 "Load a trace and launch the point-cloud viewer",
	DisableFlagsInUseLine: true,
	RunE:                  withConfig(runView),
}

func init() {
	RootCmd.AddCommand(viewCmd)
	viewCmd.Flags().StringSliceVar(&viewRanges, "ranges", nil, "only keep accesses intersecting a TRACK_RANGE with one of these labels")
	viewCmd.Flags().StringSliceVar(&viewEvents, "events", nil, "only keep accesses while a START_EVENT with one of these labels is open")
	viewCmd.Flags().BoolVar(&viewMallocOnly, "malloc-only", false, "only keep accesses inside a live heap block")
	viewCmd.Flags().Float64Var(&viewRatio, "ratio", 1.0, "address-scale to iseq-scale ratio used by the nearest-access query")
}

func runView(c *config.Config, cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return NewUsageError("view requires exactly one trace-file argument")
	}

	ranges := viewRanges
	if len(ranges) == 0 {
		ranges = c.Settings.DefaultRangesSelection
	}
	events := viewEvents
	if len(events) == 0 {
		events = c.Settings.DefaultEventsSelection
	}
	mallocOnly := viewMallocOnly || c.Settings.DefaultMallocOnly

	idx, _, p, err := loadTrace(args[0], access.FilterOptions{
		Ranges:     ranges,
		Events:     events,
		MallocOnly: mallocOnly,
	})
	if err != nil {
		return err
	}
	if p.Stats.ContentErrors > 0 || p.Stats.UnknownTags > 0 {
		log.Printf("datagrind: %d content errors, %d unknown records skipped", p.Stats.ContentErrors, p.Stats.UnknownTags)
	}

	if idx.TotalKept() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no accesses match the criteria")
		return nil
	}

	v := viewer.FromIndex(idx)
	tv := viewer.NewTextViewer(v, viewRatio, 80)
	tv.Refresh()

	root := tui.NewVBox(tv, tui.NewSpacer())
	ui, err := tui.New(root)
	if err != nil {
		return err
	}
	ui.SetKeybinding("Q", ui.Quit)
	ui.SetKeybinding("Esc", ui.Quit)
	return ui.Run()
}
