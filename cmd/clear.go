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
	"github.com/spf13/cobra"

	"github.com/wtsi-hgi/splitkv"
	"github.com/wtsi-hgi/splitkv/partstore"
)

// clearCmd represents the clear command.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every partition of a split table and re-initialise it",
	Long: `Delete every partition of a split table and re-initialise it.

This opens the table, deletes every file under --dir whose name begins
with --prefix, then re-opens an empty table in its place. This is
irreversible.
`,
	Run: func(_ *cobra.Command, _ []string) {
		if dir == "" {
			die("you must supply --dir")
		}

		table, err := splitkv.Open(splitkv.Config{
			Dir:           dir,
			Prefix:        prefix,
			RowDef:        splitkv.RowDef{RowSize: defaultRowSize, KeySize: defaultKeySize},
			Open:          partstore.Open,
			StaticRAMNeed: partstore.StaticRAMNeed,
		})
		if err != nil {
			die("failed to open %s: %s", dir, err)
		}

		if err := table.Clear(); err != nil {
			die("failed to clear %s: %s", dir, err)
		}

		if err := table.Close(); err != nil {
			warn("failed to close %s after clear: %s", dir, err)
		}

		cliPrint("cleared %s (prefix %q)\n", dir, prefix)
	},
}

func init() {
	RootCmd.AddCommand(clearCmd)
}
