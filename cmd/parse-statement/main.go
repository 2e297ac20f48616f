// Command parse-statement previews credit-card statement PDFs locally: it runs
// extraction, parsing and installment expansion without touching a database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	outputFormat string
	showRaw      bool
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "parse-statement",
	Short: "Parse credit-card statement PDFs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview [flags] <statement.pdf>...",
	Short: "Print the ledger entries a statement would produce",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPreviewer(newLogger(verbose), cmd.OutOrStdout())
		return p.run(cmd.Context(), args, previewOptions{Format: outputFormat, Raw: showRaw})
	},
}

var textCmd = &cobra.Command{
	Use:   "text <statement.pdf>",
	Short: "Dump the text extracted from a statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPreviewer(newLogger(verbose), cmd.OutOrStdout())
		return p.dumpText(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	previewCmd.Flags().StringVarP(&outputFormat, "format", "f", formatTable, "Output format: table, json, csv or xlsx")
	previewCmd.Flags().BoolVar(&showRaw, "raw", false, "Print parsed transactions before installment expansion")

	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(textCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
