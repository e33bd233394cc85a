package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Brownie44l1/plantify/internal/config"
	"github.com/Brownie44l1/plantify/internal/logging"
	"github.com/Brownie44l1/plantify/internal/resources"
)

var version = "dev"

type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	v := viper.New()

	root := &cobra.Command{
		Use:   "plantify",
		Short: "🌿 Plant leaf disease detection",
		Long: `plantify serves a web page that classifies plant leaf photos and shows
the detected disease with its symptoms, prevention and remedy.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("port", "8080", "HTTP port")
	root.PersistentFlags().String("model", "", "path to the ONNX model")
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("port", root.PersistentFlags().Lookup("port"))
	_ = v.BindPFlag("model_path", root.PersistentFlags().Lookup("model"))

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "predict <image>",
		Short: "Classify one image file and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.predict(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "plantify", version)
		},
	})
	return root
}

func (a *app) loadResources() *resources.Bundle {
	return resources.Load(resources.Options{
		ModelPath:       a.cfg.ModelPath,
		MetadataPath:    a.cfg.MetadataPath,
		ClassNamesPath:  a.cfg.ClassNamesPath,
		DiseaseInfoPath: a.cfg.DiseaseInfoPath,
		OnnxRuntimeLib:  a.cfg.OnnxRuntimeLib,
	}, a.logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
