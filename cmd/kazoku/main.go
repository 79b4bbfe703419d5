package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/asakaida/kazoku/internal/app"
	"github.com/asakaida/kazoku/internal/entities"
	"github.com/asakaida/kazoku/internal/infrastructure/config"
	"github.com/asakaida/kazoku/internal/infrastructure/logger"
	"github.com/asakaida/kazoku/internal/services/relationship"
	"github.com/asakaida/kazoku/internal/services/transfer"
	"github.com/spf13/cobra"
)

var (
	envFlag           string
	importFormat      string
	exportFormat      string
	outputFlag        string
	memberFlag        string
	correctBirthDates bool
)

var rootCmd = &cobra.Command{
	Use:   "kazoku",
	Short: "Operator tool for the kazoku relationship store",
	Long: `Operator tool for the kazoku relationship store.
Imports and exports family relationships in YAML or JSON, and lists what is stored.`,
	SilenceUsage: true,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import members and relationships from a file",
	Long: `Import members and relationships from a YAML or JSON file.
Members are created first; relationships may refer to them through their "ref".
Rows that fail are reported and do not stop the import.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCmd,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every relationship, one row per pair",
	Args:  cobra.NoArgs,
	RunE:  runExportCmd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored relationship edges",
	Args:  cobra.NoArgs,
	RunE:  runListCmd,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "File format (yaml or json); guessed from the extension when empty")
	importCmd.Flags().BoolVar(&correctBirthDates, "correct-birth-dates", false, "Swap parent/child rows whose birth dates contradict them")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "yaml", "Output format (yaml or json)")
	exportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write to this file instead of stdout")

	listCmd.Flags().StringVarP(&memberFlag, "member", "m", "", "Only edges starting at this member ID")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

// openEngine loads configuration for --env and wires the engine.
// override may adjust the configuration before anything is opened.
func openEngine(override func(*config.Config)) (*app.App, error) {
	if err := config.InitConfig(envFlag); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if override != nil {
		override(cfg)
	}

	if err := logger.Init(cfg.Log.Env); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return app.New(cfg, nil, app.WithLogger(logger.Get()))
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	path := args[0]
	format := transfer.FormatFromPath(path)
	if importFormat != "" {
		f, err := transfer.ParseFormat(importFormat)
		if err != nil {
			return err
		}
		format = f
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	engine, err := openEngine(func(cfg *config.Config) {
		if cmd.Flags().Changed("correct-birth-dates") {
			cfg.Import.CorrectBirthDates = correctBirthDates
		}
	})
	if err != nil {
		return err
	}
	defer engine.Close()
	defer logger.Sync()

	return runImport(cmd.Context(), engine.Transfer, file, format, cmd.OutOrStdout())
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	format, err := transfer.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	engine, err := openEngine(nil)
	if err != nil {
		return err
	}
	defer engine.Close()
	defer logger.Sync()

	out := cmd.OutOrStdout()
	if outputFlag != "" {
		file, err := os.Create(outputFlag)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outputFlag, err)
		}
		defer file.Close()
		out = file
	}

	return runExport(cmd.Context(), engine.Transfer, format, out)
}

func runListCmd(cmd *cobra.Command, args []string) error {
	engine, err := openEngine(nil)
	if err != nil {
		return err
	}
	defer engine.Close()
	defer logger.Sync()

	return runList(cmd.Context(), engine.Store, memberFlag, cmd.OutOrStdout())
}

// runImport decodes a transfer file, imports it and prints the report.
// Any row-level error makes the command fail after the whole file was processed.
func runImport(ctx context.Context, svc transfer.ServiceInterface, r io.Reader, format transfer.Format, out io.Writer) error {
	doc, err := transfer.Decode(r, format)
	if err != nil {
		return err
	}

	report := svc.Import(ctx, doc.Bundle())

	fmt.Fprintf(out, "members imported:       %d\n", report.MembersImported)
	fmt.Fprintf(out, "relationships imported: %d\n", report.ImportedCount)
	fmt.Fprintf(out, "rows skipped:           %d\n", report.SkippedCount)
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "warning: %s #%d: [%s] %s\n", w.Category, w.Index, w.Code, w.Message)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "error:   %s #%d: [%s] %s\n", e.Category, e.Index, e.Code, e.Message)
	}

	if n := len(report.Errors); n > 0 {
		return fmt.Errorf("import finished with %d error(s)", n)
	}
	return nil
}

// runExport writes every relationship in the requested format
func runExport(ctx context.Context, svc transfer.ServiceInterface, format transfer.Format, out io.Writer) error {
	records, err := svc.Export(ctx)
	if err != nil {
		return err
	}
	return transfer.Encode(out, format, transfer.NewExportDocument(records))
}

// runList prints stored edges, optionally only those starting at memberID
func runList(ctx context.Context, store relationship.GraphStoreInterface, memberID string, out io.Writer) error {
	var (
		records []*entities.RelationshipRecord
		err     error
	)
	if memberID != "" {
		records, err = store.ListForMember(ctx, memberID)
	} else {
		records, err = store.GetAll(ctx)
	}
	if err != nil {
		return err
	}

	for _, r := range records {
		line := fmt.Sprintf("%s  %s is the %s of %s", r.ID, r.FromMemberName, r.Kind, r.ToMemberName)
		if r.SiblingType != entities.SiblingUnspecified {
			line += fmt.Sprintf(" (%s)", r.SiblingType)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
