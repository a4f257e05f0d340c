// Command icap-server runs a single-service ICAP server: it registers
// the reference echo service under a positional service-name argument
// and listens until interrupted, draining in-flight sessions on
// shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gocap/icap"
	"github.com/gocap/icap/internal/obslog"
)

var (
	host         string
	port         int
	logFile      string
	logRotateMB  int64
	debugLogging bool
)

var rootCmd = &cobra.Command{
	Use:   "icap-server service_name",
	Short: "Run an ICAP server with a REQMOD/OPTIONS echo service",
	Long: "Run an ICAP server that registers an echo service, performing no " +
		"content adaptation, under the given service name.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVar(&host, "host", "127.0.0.1", "the host address on which to listen")
	rootCmd.Flags().IntVar(&port, "port", 1344, "the port on which to listen")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "log file path (default: stderr)")
	rootCmd.Flags().Int64Var(&logRotateMB, "log-rotate-size-mb", 25, "rotate the log file once it exceeds this size")
	rootCmd.Flags().BoolVar(&debugLogging, "debug", false, "enable debug-level logging")

	viper.SetEnvPrefix("ICAP")
	viper.AutomaticEnv()
	viper.BindPFlag("host", rootCmd.Flags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.Flags().Lookup("port"))
	viper.BindPFlag("log-file", rootCmd.Flags().Lookup("log-file"))
	viper.BindPFlag("log-rotate-size-mb", rootCmd.Flags().Lookup("log-rotate-size-mb"))
	viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
}

func run(serviceName string) error {
	host = viper.GetString("host")
	port = viper.GetInt("port")

	logger, err := obslog.New(obslog.Config{
		LogFile:      viper.GetString("log-file"),
		RotateSizeMB: viper.GetInt64("log-rotate-size-mb"),
		Debug:        viper.GetBool("debug"),
	})
	if err != nil {
		return fmt.Errorf("icap-server: configuring logger: %w", err)
	}

	mux := icap.NewServeMux()
	mux.Handle(serviceName, EchoHandler{Logger: logger})

	addr := fmt.Sprintf("%s:%d", host, port)
	listener := &icap.Listener{
		Addr:         addr,
		Mux:          mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     logger,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting ICAP server on %s with service %q", addr, serviceName)
		errCh <- listener.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Infof("shutdown signal received, draining in-flight sessions")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return listener.Shutdown(ctx)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
