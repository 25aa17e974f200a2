package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/refixhq/refix-cli/internal/output"
)

var scanLanguage string

var scanCmd = &cobra.Command{
	Use:   "scan <manifest>",
	Short: "Scan a dependency manifest for known vulnerabilities",
	Long: `Submit a dependency manifest (package.json, requirements.txt, go.mod) to
the vulnerability scanner. The raw scan report is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return scanRun(cmd.Context(), args[0])
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanLanguage, "language", "l", "", "Ecosystem of the manifest (inferred from the filename when omitted)")
	rootCmd.AddCommand(scanCmd)
}

// manifestLanguage infers the ecosystem from well-known manifest names.
func manifestLanguage(path string) string {
	switch filepath.Base(path) {
	case "package.json", "package-lock.json", "yarn.lock":
		return "javascript"
	case "requirements.txt", "Pipfile", "pyproject.toml":
		return "python"
	case "go.mod", "go.sum":
		return "go"
	case "Gemfile", "Gemfile.lock":
		return "ruby"
	case "pom.xml", "build.gradle":
		return "java"
	default:
		return ""
	}
}

func scanRun(ctx context.Context, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	language := scanLanguage
	if language == "" {
		language = manifestLanguage(path)
	}
	if language == "" {
		return fmt.Errorf("could not infer ecosystem for %s; pass --language", path)
	}

	result, err := apiClient.ScanDependencies(ctx, string(data), language)
	if err != nil {
		return err
	}
	return output.WriteJSON(ui.Out, result)
}
