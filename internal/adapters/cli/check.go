package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
)

type checkFlags struct {
	submitter string
	json      bool
	noWeb     bool
	archive   bool
}

func newCheckCommand(a *app) *cobra.Command {
	var flags checkFlags
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Check a document for overlap",
		Long: `Extracts the text of a .txt, .md, .pdf, .docx or .xlsx file, compares it
with the local archive and with web search results, and prints the ranked
matches. Use --archive to store the document afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, a, flags, args[0])
		},
	}
	cmd.Flags().StringVarP(&flags.submitter, "submitter", "s", "", "submitter name, required with --archive")
	cmd.Flags().BoolVar(&flags.json, "json", false, "output the report as JSON")
	cmd.Flags().BoolVar(&flags.noWeb, "no-web", false, "compare against the local archive only")
	cmd.Flags().BoolVar(&flags.archive, "archive", false, "archive the document after checking")
	return cmd
}

func runCheck(cmd *cobra.Command, a *app, flags checkFlags, path string) error {
	if flags.archive && strings.TrimSpace(flags.submitter) == "" {
		return errors.New("--archive requires --submitter")
	}
	sub, err := readSubmission(path, flags.submitter)
	if err != nil {
		return err
	}
	services, err := a.get(cmd.Context())
	if err != nil {
		return err
	}

	opts := ports.AnalyzeOptions{
		SkipWeb:  flags.noWeb,
		Progress: stderrProgress(cmd.ErrOrStderr()),
	}
	text, report, err := services.Submissions.Check(cmd.Context(), sub, opts)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if flags.json {
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		printReport(cmd.OutOrStdout(), report)
	}

	if !flags.archive {
		return nil
	}
	result, err := services.Archive.Archive(cmd.Context(), ports.ArchiveRequest{
		Submitter: sub.Submitter,
		Filename:  sub.Filename,
		Content:   text,
		Raw:       sub.Data,
	})
	if err != nil {
		return fmt.Errorf("archive failed: %w", err)
	}
	printArchiveResult(cmd.ErrOrStderr(), result)
	return nil
}

func readSubmission(path, submitter string) (domain.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.Submission{
		Submitter: strings.TrimSpace(submitter),
		Filename:  filepath.Base(path),
		Data:      data,
	}, nil
}

// stderrProgress redraws a single progress line while pages are fetched.
func stderrProgress(w io.Writer) ports.ProgressFunc {
	return func(done, total int) {
		fmt.Fprintf(w, "\rfetching web evidence %d/%d", done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}

func printReport(w io.Writer, report *domain.AnalysisReport) {
	fmt.Fprintf(w, "Severity: %s (max score %.2f)\n", strings.ToUpper(string(report.Severity)), report.MaxScore)
	fmt.Fprintf(w, "Status:   %s\n", report.Status)
	if len(report.Degraded) > 0 {
		fmt.Fprintf(w, "Degraded: %s\n", strings.Join(report.Degraded, ", "))
	}
	c := report.Coverage
	fmt.Fprintf(w, "Coverage: %d archive entries, %d queries, %d/%d pages fetched\n",
		c.ArchiveEntries, c.Queries, c.PagesFetched, c.URLs)
	fmt.Fprintln(w)

	if len(report.Matches) == 0 {
		fmt.Fprintln(w, "No matches above threshold.")
		return
	}
	fmt.Fprintf(w, "Top matches (%d of %d):\n", len(report.Matches), report.TotalMatches)
	for i, m := range report.Matches {
		fmt.Fprintf(w, "  [%d] %.2f  %-5s  %s\n", i+1, m.Score, m.Origin, m.Source)
	}
}

func printArchiveResult(w io.Writer, result ports.ArchiveResult) {
	if result.AlreadyExists {
		fmt.Fprintln(w, "Identical content is already archived.")
		return
	}
	if result.Entry != nil {
		fmt.Fprintf(w, "Archived as %s.\n", result.Entry.ID)
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
