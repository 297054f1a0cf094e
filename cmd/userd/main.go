package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	chserver "github.com/openrport/userd/server"
	chshare "github.com/openrport/userd/share"
	"github.com/openrport/userd/share/logger"
)

const DefaultConfigName = "userd.conf"

var serverHelp = `
  Usage: userd [options]

  Examples:

    ./userd
    serves the users API on http://127.0.0.1:8080/ with in-memory storage

    PORT=9000 ./userd --addr=0.0.0.0 --storage=sqlite --seed
    serves on all interfaces, port 9000, backed by an in-memory SQLite database
    that starts with one demo user

  Options:

    --port, -p, Defines the port the HTTP server listens on.
    (defaults to the environment variable PORT and falls back to 8080).

    --addr, -a, Defines the IP address the HTTP server listens on.
    (defaults to the environment variable USERD_ADDR and falls back to 127.0.0.1).

    --storage, Selects the user storage. Values: "memory", "sqlite" (defaults to the
    environment variable USERD_STORAGE and falls back to "memory").
    Both keep data only for the lifetime of the process.

    --seed, Inserts a demo user at start.

    --recover-poisoned, Lets the in-memory storage recover by itself after an operation
    panicked while holding the write lock. Without it every later operation fails with
    a lock error until the process receives SIGHUP or is restarted.

    --cert-file, --key-file, Paths to a PEM certificate and its private key. When both
    are set the API is served over HTTPS.

    --max-request-bytes, Defines a limit for API request bodies. By default is set to 10240 (10Kb).

    --cors-origins, Comma separated list of origins allowed to call the API from a browser.

    --verbose, -v, Specify log level. Values: "error", "info", "debug"
    (defaults to the environment variable LOG_LEVEL and falls back to "error").

    --log-file, -l, Specifies log file path. (defaults to the environment variable
    USERD_LOG_FILE and falls back to empty string: log printed to stdout)

    --config, -c, An optional arg to define a path to a config file. If it is set then
    configuration will be loaded from the file. Note: command arguments and env variables will override them.
    Config file should be in TOML format. See "userd.example.conf".

    --help, -h, This help text

    --version, Print version info and exit

  Signals:
    SIGINT and SIGTERM stop accepting requests and shut the server down gracefully.
    SIGHUP clears a poisoned in-memory storage.
`

var (
	RootCmd = &cobra.Command{
		Use:     "userd",
		Version: chshare.BuildVersion,
		Run:     runMain,
	}
)

func init() {
	addFlags(RootCmd.PersistentFlags())

	RootCmd.SetUsageFunc(func(*cobra.Command) error {
		fmt.Print(serverHelp)
		os.Exit(1)
		return nil
	})
}

func addFlags(pFlags *pflag.FlagSet) {
	pFlags.IntP("port", "p", 0, "")
	pFlags.StringP("addr", "a", "", "")
	pFlags.StringP("log-file", "l", "", "")
	pFlags.StringP("verbose", "v", "", "")
	pFlags.String("storage", "", "")
	pFlags.Bool("seed", false, "")
	pFlags.Bool("recover-poisoned", false, "")
	pFlags.String("cert-file", "", "")
	pFlags.String("key-file", "", "")
	pFlags.Int64("max-request-bytes", chserver.DefaultMaxRequestBytes, "")
	pFlags.StringSlice("cors-origins", []string{}, "")
	pFlags.StringP("config", "c", "", "")
}

// newViperConfig maps config file keys to CLI args and env variables.
func newViperConfig(pFlags *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("server.port", chserver.DefaultPort)
	v.SetDefault("server.address", chserver.DefaultHost)
	v.SetDefault("logging.log_level", "error")
	v.SetDefault("storage.driver", chserver.StorageMemory)

	// _ is used to ignore errors to pass linter check
	_ = v.BindPFlag("server.port", pFlags.Lookup("port"))
	_ = v.BindPFlag("server.address", pFlags.Lookup("addr"))
	_ = v.BindPFlag("server.cert_file", pFlags.Lookup("cert-file"))
	_ = v.BindPFlag("server.key_file", pFlags.Lookup("key-file"))
	_ = v.BindPFlag("server.max_request_bytes", pFlags.Lookup("max-request-bytes"))
	_ = v.BindPFlag("logging.log_file", pFlags.Lookup("log-file"))
	_ = v.BindPFlag("logging.log_level", pFlags.Lookup("verbose"))
	_ = v.BindPFlag("storage.driver", pFlags.Lookup("storage"))
	_ = v.BindPFlag("storage.seed", pFlags.Lookup("seed"))
	_ = v.BindPFlag("storage.recover_poisoned", pFlags.Lookup("recover-poisoned"))
	_ = v.BindPFlag("api.cors_origins", pFlags.Lookup("cors-origins"))

	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.address", "USERD_ADDR")
	_ = v.BindEnv("logging.log_level", "LOG_LEVEL")
	_ = v.BindEnv("logging.log_file", "USERD_LOG_FILE")
	_ = v.BindEnv("storage.driver", "USERD_STORAGE")

	return v
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func decodeAndValidateConfig(v *viper.Viper, configPath string, mLog *logger.MemLogger) (*chserver.Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigName)
	}

	cfg := &chserver.Config{}
	if err := chshare.DecodeViperConfig(v, cfg); err != nil {
		return nil, err
	}

	if used := v.ConfigFileUsed(); used != "" {
		mLog.Infof("using config file %s", used)
	}

	if err := cfg.ParseAndValidate(); err != nil {
		return nil, err
	}

	mLog.Debugf("storage %q, listening on %s", cfg.Storage.Driver, cfg.ListenAddress())
	return cfg, nil
}

func runMain(cmd *cobra.Command, args []string) {
	mLog := logger.NewMemLogger()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := decodeAndValidateConfig(newViperConfig(cmd.Flags()), configPath, mLog)
	if err != nil {
		log.Fatal(err)
	}

	err = cfg.Logging.LogOutput.Start()
	if err != nil {
		log.Fatal(err)
	}
	defer cfg.Logging.LogOutput.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := chserver.NewServer(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	mLog.Flush(s.Logger)

	if err = s.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
