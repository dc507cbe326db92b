package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/openplag/internal/core/ports"
)

func newArchiveCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage the local archive of submissions",
	}
	cmd.AddCommand(
		newArchiveAddCommand(a),
		newArchiveListCommand(a),
		newArchiveStatsCommand(a),
		newArchiveClearCommand(a),
	)
	return cmd
}

func newArchiveAddCommand(a *app) *cobra.Command {
	var submitter string
	cmd := &cobra.Command{
		Use:   "add [file]",
		Short: "Add a document to the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(submitter) == "" {
				return errors.New("--submitter is required")
			}
			sub, err := readSubmission(args[0], submitter)
			if err != nil {
				return err
			}
			services, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			text, err := services.Submissions.Extract(cmd.Context(), sub)
			if err != nil {
				return fmt.Errorf("extract failed: %w", err)
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
			printArchiveResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&submitter, "submitter", "s", "", "submitter name")
	return cmd
}

func newArchiveListCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := services.Archive.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}
			for i := range entries {
				entries[i].Content = ""
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Archive is empty.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.Label())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output entries as JSON")
	return cmd
}

func newArchiveStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show archive size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := services.Archive.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("stats failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived documents: %d\n", stats.Entries)
			return nil
		},
	}
}

func newArchiveClearCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every archived document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear the archive without --yes")
			}
			services, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			if err := services.Archive.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Archive cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
