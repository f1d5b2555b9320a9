package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bigfive-core/internal/app"
	"bigfive-core/internal/config"
)

const name = "scorectl"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           name,
		Short:         "scorectl opera el motor de scoring Big Five contra la base de datos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "archivo de configuracion (por defecto scorectl.yaml en el directorio actual)")
	rootCmd.PersistentFlags().String("tenant", "", "tenant sobre el que operan los comandos administrativos")
	rootCmd.PersistentFlags().String("database-url", "", "DSN de postgres; pisa DATABASE_URL")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "logs detallados")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "salida JSON en lugar de tabla")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "no pedir confirmacion")

	for _, f := range []string{"tenant", "database-url", "debug", "json", "yes"} {
		_ = viper.BindPFlag(f, rootCmd.PersistentFlags().Lookup(f))
	}
}

func initConfig() {
	viper.SetEnvPrefix("SCORECTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(name)
		viper.SetConfigType("yaml")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

// runner abre la aplicacion para un comando y la cierra al terminar.
type runner func(ctx context.Context, a *app.App, logger *zap.Logger, args []string) error

func withApp(fn runner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_ = godotenv.Load()
		if dsn := viper.GetString("database-url"); dsn != "" {
			_ = os.Setenv("DATABASE_URL", dsn)
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, err := newLogger(viper.GetBool("debug"))
		if err != nil {
			return err
		}
		defer logger.Sync()

		a, closeApp, err := app.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeApp()
		return fn(ctx, a, logger, args)
	}
}

// newLogger escribe a stderr para no mezclar logs con la salida del comando.
func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

func requireTenant() (string, error) {
	t := strings.TrimSpace(viper.GetString("tenant"))
	if t == "" {
		return "", errors.New("--tenant is required")
	}
	return t, nil
}
