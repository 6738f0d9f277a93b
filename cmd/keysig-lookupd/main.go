package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"xdao.co/keysig/config"
	"xdao.co/keysig/grpcnode"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, errOut io.Writer) int {
	cmd := newCmd(errOut)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newCmd(errOut io.Writer) *cobra.Command {
	v := config.New()
	var configPath string

	cmd := &cobra.Command{
		Use:           "keysig-lookupd",
		Short:         "Serve find-entities-by-key queries from a JSON directory",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadFile(v, configPath); err != nil {
				return err
			}
			cfg, err := config.Decode(v)
			if err != nil {
				return err
			}
			log, err := cfg.Log.Logger(errOut)
			if err != nil {
				return err
			}
			lis, err := net.Listen("tcp", cfg.Lookupd.Listen)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg.Lookupd, lis, log)
		},
	}
	cmd.SetErr(errOut)

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "Config file (yaml, json or toml)")
	f.String("listen", "", "Listen address")
	f.String("directory", "", "JSON file of keys and the entities they control")
	f.Uint64("cost", 0, "Query cost; answer queries without a payment get INSUFFICIENT_FEE")
	f.Int("max-in-flight", 0, "Answer BUSY beyond this many concurrent queries (0 is unlimited)")
	f.String("log-level", "", "Log level")
	f.String("log-format", "", "Log format: text or json")
	for key, name := range map[string]string{
		"lookupd.listen":        "listen",
		"lookupd.directory":     "directory",
		"lookupd.cost":          "cost",
		"lookupd.max_in_flight": "max-in-flight",
		"log.level":             "log-level",
		"log.format":            "log-format",
	} {
		if err := v.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(err)
		}
	}
	return cmd
}

// serve answers queries on lis until ctx is done, then drains in-flight calls.
func serve(ctx context.Context, cfg config.LookupdConfig, lis net.Listener, log zerolog.Logger) error {
	if cfg.Directory == "" {
		_ = lis.Close()
		return errors.New("lookupd.directory is required")
	}
	dir, err := grpcnode.LoadDirectory(cfg.Directory)
	if err != nil {
		_ = lis.Close()
		return fmt.Errorf("load directory: %w", err)
	}

	srvLog := log.With().Str("module", "lookupd").Logger()
	gs := grpc.NewServer()
	grpcnode.RegisterCryptoLookupServer(gs, &grpcnode.Server{
		Directory:   dir,
		Cost:        cfg.Cost,
		MaxInFlight: cfg.MaxInFlight,
		Logger:      &srvLog,
	})

	errc := make(chan error, 1)
	go func() { errc <- gs.Serve(lis) }()
	srvLog.Info().
		Str("listen", lis.Addr().String()).
		Int("keys", dir.Len()).
		Uint64("cost", cfg.Cost).
		Msg("serving")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		srvLog.Info().Msg("shutting down")
		gs.GracefulStop()
		<-errc
		return nil
	}
}
