// Package cli implements the openplag command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kirillkom/openplag/internal/core/ports"
)

// Services are the use cases the commands drive.
type Services struct {
	Submissions ports.SubmissionChecker
	Analyzer    ports.DocumentAnalyzer
	Archive     ports.DocumentArchiver
}

// Loader builds Services on first use; the returned func releases them.
type Loader func(ctx context.Context) (*Services, func(), error)

type app struct {
	load     Loader
	services *Services
	release  func()
}

func (a *app) get(ctx context.Context) (*Services, error) {
	if a.services != nil {
		return a.services, nil
	}
	if a.load == nil {
		return nil, errors.New("services not configured")
	}
	services, release, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	a.services, a.release = services, release
	return services, nil
}

func (a *app) close() {
	if a.release != nil {
		a.release()
	}
	a.services, a.release = nil, nil
}

// Execute runs the command line with args from os.Args.
func Execute(ctx context.Context, load Loader) error {
	a := &app{load: load}
	defer a.close()
	return newRootCommand(a).ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "openplag",
		Short: "Check documents for overlap with an archive and the web",
		Long: `openplag scores a document against previously archived submissions and
against pages found by web search, and classifies the overlap as clean,
moderate or critical.`,
		SilenceUsage: true,
	}
	root.AddCommand(newCheckCommand(a), newArchiveCommand(a), newMCPCommand(a))
	return root
}
