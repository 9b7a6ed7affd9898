package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/straja-ai/fieldsense/internal/app"
	"github.com/straja-ai/fieldsense/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fieldsense",
	Short: "Classify job application form fields and propose answers",
	Long: `fieldsense tells an automation agent what each field of an application
form is asking for. Known fields are answered from pattern rules and
learned signatures; unseen ones go through local models and, optionally,
a remote verifier. Confident classifier results are remembered so the
next form with the same field costs nothing.`,
	SilenceUsage: true,
	Version:      app.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "fieldsense.yaml", "path to the config file")

	rootCmd.AddCommand(serveCmd, mcpCmd, classifyCmd, learnedCmd, statsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// withApp loads config, builds the app and closes it after fn returns.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(a)
}
