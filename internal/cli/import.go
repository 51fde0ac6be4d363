package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/orderimport/internal/core"
)

// ImportReport is the outcome of one file.
type ImportReport struct {
	File      string `json:"file" yaml:"file"`
	Status    string `json:"status" yaml:"status"`
	ImportID  string `json:"import_id,omitempty" yaml:"import_id,omitempty"`
	Customers int    `json:"customers,omitempty" yaml:"customers,omitempty"`
	Orders    int    `json:"orders,omitempty" yaml:"orders,omitempty"`
	LineItems int    `json:"line_items,omitempty" yaml:"line_items,omitempty"`
	Code      string `json:"code,omitempty" yaml:"code,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// statusRejected marks files refused before the import pipeline ran.
const statusRejected = "rejected"

func newImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Import one or more order files",
		Long: `Import fixed-width order files (.txt) one after another.

Every file is imported in its own transaction. A failing file does not
stop the remaining ones; the command exits non-zero if any file failed.
Files whose content was imported before are reported as already_imported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args)
		},
	}
}

func runImport(cmd *cobra.Command, opts *RootOptions, paths []string) error {
	sess, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	reports := make([]ImportReport, 0, len(paths))
	failed := 0
	for _, path := range paths {
		report := importFile(cmd, sess.service, path)
		if report.Status != core.OutcomeImported {
			failed++
		}
		reports = append(reports, report)
	}

	if err := opts.formatter(cmd).Render(reports, func(w io.Writer) {
		for _, r := range reports {
			printReport(w, r)
		}
	}); err != nil {
		return err
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d files failed", failed, len(paths)))
	}
	return nil
}

func importFile(cmd *cobra.Command, svc *core.Service, path string) ImportReport {
	name := filepath.Base(path)
	report := ImportReport{File: path}

	if err := core.CheckFileExtension(name); err != nil {
		return rejected(report, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rejected(report, err)
	}

	result, err := svc.ImportBatch(cmd.Context(), name, data)
	report.Status = core.ImportOutcome(err)
	report.ImportID = result.ImportID
	if err != nil {
		report.Code = core.MapError(err).Code
		report.Error = err.Error()
		return report
	}

	report.Customers = result.Customers
	report.Orders = result.Orders
	report.LineItems = result.LineItems
	return report
}

func rejected(report ImportReport, err error) ImportReport {
	report.Status = statusRejected
	report.Code = core.MapError(err).Code
	report.Error = err.Error()
	return report
}

func printReport(w io.Writer, r ImportReport) {
	if r.Status == core.OutcomeImported {
		fmt.Fprintf(w, "%s: imported %d customers, %d orders, %d line items (import %s)\n",
			r.File, r.Customers, r.Orders, r.LineItems, r.ImportID)
		return
	}
	fmt.Fprintf(w, "%s: %s [%s] %s\n", r.File, r.Status, r.Code, r.Error)
}
