/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Author: Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package cmd

import (
	"os"

	"code.cloudfoundry.org/bytefmt"
	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wtsi-hgi/splitkv"
	"github.com/wtsi-hgi/splitkv/partstore"
)

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Report summary statistics about a split table",
	Long: `Report summary statistics about a split table.

Opens the table the same way any other open does (no rows are ever written
by this command, but legacy-named partition files are renamed to the
modern shape and a missing --dir is created) and prints one row per
partition file: its creation time, whether it is the active partition,
its row count and estimated memory footprint, followed by total lines for
partition count, rows and memory.
`,
	Run: func(_ *cobra.Command, _ []string) {
		if dir == "" {
			die("you must supply --dir")
		}

		table, err := splitkv.Open(splitkv.Config{
			Dir:           dir,
			Prefix:        prefix,
			RowDef:        splitkv.RowDef{RowSize: infoRowSize, KeySize: infoKeySize},
			Open:          partstore.Open,
			StaticRAMNeed: partstore.StaticRAMNeed,
		})
		if err != nil {
			die("failed to open %s: %s", dir, err)
		}
		defer table.Close()

		stats, err := table.Stats()
		if err != nil {
			die("failed to gather stats: %s", err)
		}

		printInfoTable(stats)
	},
}

var (
	infoRowSize int
	infoKeySize int
)

func init() {
	RootCmd.AddCommand(infoCmd)
	infoCmd.Flags().IntVar(&infoRowSize, "row-size", defaultRowSize, "row size in bytes, per the table's RowDef")
	infoCmd.Flags().IntVar(&infoKeySize, "key-size", defaultKeySize, "primary key size in bytes, per the table's RowDef")
}

func printInfoTable(stats splitkv.Stats) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Partition", "Created", "Active", "Rows", "Mem"})

	for _, p := range stats.Partitions {
		active := ""
		if p.Active {
			active = "yes"
		}

		table.Append([]string{
			p.Filename,
			p.Created,
			active,
			humanize.Comma(int64(p.Rows)),
			bytefmt.ByteSize(uint64(p.Mem)),
		})
	}

	table.Render()

	cliPrint("\nPartitions: %d\nTotal rows: %s\nTotal mem: %s\n",
		stats.PartitionCount, humanize.Comma(int64(stats.TotalRows)), bytefmt.ByteSize(uint64(stats.TotalMem)))
}
