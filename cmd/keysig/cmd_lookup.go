package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"xdao.co/keysig/keysig"
	"xdao.co/keysig/ledger"
)

var lookupModes = map[string]ledger.ResponseType{
	"answer":     ledger.AnswerOnly,
	"proof":      ledger.AnswerStateProof,
	"cost":       ledger.CostAnswer,
	"cost-proof": ledger.CostAnswerStateProof,
}

func newLookupCmd(a *app) *cobra.Command {
	var (
		mode, paymentHex string
		retries          int
		backoff          time.Duration
	)
	cmd := &cobra.Command{
		Use:   "lookup <document> [--mode answer|proof|cost|cost-proof]",
		Short: "Ask a node which entities are controlled by a key",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, ok := lookupModes[mode]
			if !ok {
				return usagef("unknown --mode %q", mode)
			}
			payment, err := hex.DecodeString(paymentHex)
			if err != nil {
				return usagef("decode --payment-hex: %v", err)
			}
			if rt == ledger.CostAnswer || rt == ledger.CostAnswerStateProof {
				payment = nil
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			sk, err := readDocument(args[0])
			if err != nil {
				return err
			}

			client, err := cfg.Node.Dial()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			for attempt := 0; ; attempt++ {
				ok, err = sk.GetEntities(ctx, client, payment, rt)
				if err != nil {
					return err
				}
				if ok || !sk.Precheck.Retryable() || attempt >= retries {
					break
				}
				a.log.Info().Str("node", cfg.Node.Target).Int("attempt", attempt+1).Msg("node busy, retrying")
				if err := sleepCtx(ctx, retryDelay(backoff, attempt)); err != nil {
					return err
				}
			}

			printLookup(a, sk, rt)
			if !ok {
				return fmt.Errorf("precheck %s", sk.Precheck)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&mode, "mode", "answer", "Response type: answer, proof, cost or cost-proof")
	f.StringVar(&paymentHex, "payment-hex", "", "Hex-encoded payment transaction for answer modes")
	f.IntVar(&retries, "retries", 0, "Retry this many times while the node reports BUSY")
	f.DurationVar(&backoff, "backoff", 250*time.Millisecond, "Initial delay between BUSY retries")
	return cmd
}

const maxBackoff = 30 * time.Second

// retryDelay doubles base for each attempt, up to maxBackoff.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func printLookup(a *app, sk *keysig.SignedKey, rt ledger.ResponseType) {
	fmt.Fprintf(a.out, "status\t%s\n", sk.Precheck)
	if sk.Precheck != keysig.StatusOK {
		return
	}
	fmt.Fprintf(a.out, "cost\t%d\n", sk.Cost)
	if rt.WantsStateProof() {
		fmt.Fprintf(a.out, "proof\t%s\n", hex.EncodeToString(sk.StateProof))
	}
	for _, e := range sk.Entities {
		fmt.Fprintf(a.out, "entity\t%s\n", e)
	}
}
