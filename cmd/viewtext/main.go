package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/engine"
	"github.com/neurodesk/viewtext/pkg/provider"
)

// app holds the global flags and the services commands share.
type app struct {
	configs   []string
	verbose   bool
	logger    *slog.Logger
	providers *provider.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{providers: provider.NewRegistry()}

	root := &cobra.Command{
		Use:           "viewtext",
		Short:         "Render declarative text layouts from a data context",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	root.PersistentFlags().StringArrayVarP(&a.configs, "config", "c", nil, "Path to a TOML or YAML config file (can be repeated)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.renderCmd(),
		a.renderInputsCmd(),
		a.renderPresentersCmd(),
		a.testCmd(),
		a.checkCmd(),
		a.listCmd(),
		a.showCmd(),
		a.inputsCmd(),
		a.presentersCmd(),
		a.formattersCmd(),
		a.templatesCmd(),
		a.infoCmd(),
		a.generateInputsCmd(),
		a.watchCmd(),
	)
	return root
}

// load resolves the --config paths and merges the files.
func (a *app) load() ([]string, *config.Config, error) {
	paths, err := config.ResolvePaths(a.configs)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.NewLoader(paths...).Load()
	if err != nil {
		return nil, nil, err
	}
	return paths, cfg, nil
}

func (a *app) engine(cfg *config.Config, opts ...engine.Option) (*engine.Engine, error) {
	return engine.FromConfig(cfg, append([]engine.Option{engine.WithLogger(a.logger)}, opts...)...)
}

// resolveContext picks the render context: JSON piped on stdin, then the
// configured provider, then demo data.
func (a *app) resolveContext(cmd *cobra.Command, paths []string, cfg *config.Config) (map[string]any, error) {
	opts := []provider.Option{
		provider.WithRegistry(a.providers),
		provider.WithLogger(a.logger),
		provider.WithStdin(pipedInput(cmd)),
	}
	if len(paths) > 0 {
		opts = append(opts, provider.WithBaseDir(filepath.Dir(paths[0])))
	}
	ctx, src, err := provider.NewResolver(opts...).Resolve(cmd.Context(), cfg.ContextProviderName())
	if err != nil {
		return nil, err
	}
	a.logger.Debug("context resolved", "source", src, "keys", len(ctx))
	return ctx, nil
}

// pipedInput returns the command's stdin unless it is a terminal.
func pipedInput(cmd *cobra.Command) io.Reader {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return in
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
