package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bmerry/datagrind/analyzer/access"
	"github.com/bmerry/datagrind/analyzer/query"
	"github.com/bmerry/datagrind/codec"
	"github.com/bmerry/datagrind/config"
)

var (
	queryAddr       string
	queryISeq       uint64
	queryRatio      float64
	queryRanges     []string
	queryEvents     []string
	queryMallocOnly bool
)

var queryCmd = &cobra.Command{
	Use:                   "query <trace-file>",
	Short:                 "Print the kept access nearest to an (address, iseq) point",
	DisableFlagsInUseLine: true,
	RunE:                  withConfig(runQuery),
}

func init() {
	RootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&queryAddr, "addr", "", "query address, hex (e.g. 0x1000) or decimal (required)")
	queryCmd.Flags().Uint64Var(&queryISeq, "iseq", 0, "query instruction sequence number")
	queryCmd.Flags().Float64Var(&queryRatio, "ratio", 1.0, "address-scale to iseq-scale ratio")
	queryCmd.Flags().StringSliceVar(&queryRanges, "ranges", nil, "only keep accesses intersecting a TRACK_RANGE with one of these labels")
	queryCmd.Flags().StringSliceVar(&queryEvents, "events", nil, "only keep accesses while a START_EVENT with one of these labels is open")
	queryCmd.Flags().BoolVar(&queryMallocOnly, "malloc-only", false, "only keep accesses inside a live heap block")
	queryCmd.MarkFlagRequired("addr")
}

func runQuery(c *config.Config, cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return NewUsageError("query requires exactly one trace-file argument")
	}
	addr, err := strconv.ParseUint(queryAddr, 0, 64)
	if err != nil {
		return NewUsageError("--addr is not a valid address: " + err.Error())
	}

	ranges := queryRanges
	if len(ranges) == 0 {
		ranges = c.Settings.DefaultRangesSelection
	}
	events := queryEvents
	if len(events) == 0 {
		events = c.Settings.DefaultEventsSelection
	}
	mallocOnly := queryMallocOnly || c.Settings.DefaultMallocOnly

	idx, resolver, _, err := loadTrace(args[0], access.FilterOptions{
		Ranges:     ranges,
		Events:     events,
		MallocOnly: mallocOnly,
	})
	if err != nil {
		return err
	}

	a, ok := query.Nearest(idx, codec.HWord(addr), queryISeq, queryRatio)
	if !ok {
		_, werr := cmd.OutOrStdout().Write([]byte("no kept accesses in this trace\n"))
		return werr
	}

	table := defaultTable(cmd.OutOrStdout())
	table.SetHeader([]string{"field", "value"})
	table.Append([]string{"address", resolver.Label(a.Addr)})
	table.Append([]string{"direction", a.Dir.String()})
	table.Append([]string{"size", strconv.Itoa(int(a.Size))})
	table.Append([]string{"issuing instruction", resolver.Label(a.IAddr)})
	table.Append([]string{"instruction sequence", strconv.FormatUint(a.ISeq, 10)})
	if a.Block != nil {
		table.Append([]string{"heap block", resolver.Label(a.Block.Addr) + " (" + strconv.FormatUint(uint64(a.Block.Size), 10) + " bytes)"})
	}
	for i, pc := range a.Stack {
		table.Append([]string{"stack[" + strconv.Itoa(i) + "]", resolver.Label(pc)})
	}
	table.Render()
	return nil
}
