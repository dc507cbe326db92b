package cli

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/openplag/internal/adapters/mcp"
)

func newMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve check and archive tools over MCP stdio",
		Long: `Runs a Model Context Protocol server on stdin/stdout exposing the
check_document, archive_document and archive_stats tools.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			server, err := mcpadapter.NewServer(services.Analyzer, services.Archive)
			if err != nil {
				return err
			}
			return server.Listen(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
