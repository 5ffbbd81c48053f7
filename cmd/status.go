package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"mokctl/internal/efi"
	"mokctl/internal/varstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current state of every MOK variable in the configured VarStore",
	Long: `status reads each of the ten well-known MOK variables (spec.md §3) from
the active profile's VarStore and renders their presence, size, and
attributes as a table, grounded on the teacher's cmd/list.go outputTable
and cmd/doctor.go's color-coded health report.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusVariables = []string{
	efi.MokList, efi.MokListRT, efi.MokNew, efi.MokAuth,
	efi.MokDel, efi.MokDelAuth, efi.MokSB, efi.MokSBState,
	efi.MokPW, efi.MokPWStore,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := buildStore()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	var rows [][]string
	for _, name := range statusVariables {
		v, getErr := store.Get(ctx, name)
		switch {
		case getErr == nil:
			runtime := faint("no")
			if v.Attrs&efi.RuntimeAccess != 0 {
				runtime = color.New(color.FgYellow).Sprint("yes")
			}
			rows = append(rows, []string{bold(name), green("present"), fmt.Sprintf("%d", len(v.Data)), runtime})
		case errors.Is(getErr, varstore.ErrNotFound):
			rows = append(rows, []string{name, faint("absent"), "-", "-"})
		default:
			return getErr
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Variable", "Present", "Size", "Runtime-Accessible"})
	_ = table.Bulk(rows)
	return table.Render()
}
