package main

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"xdao.co/keysig/keys"
)

var errNoMatch = errors.New("no leaf matched")

func newSignCmd(a *app) *cobra.Command {
	var (
		publicKey, uuid, signature string
		first, update              bool
		signer, role, message      string
	)
	cmd := &cobra.Command{
		Use:   "sign <document>",
		Short: "Attach signatures to a key tree and print the updated document",
		Long: `Attach a signature by public key (--public-key with --signature),
by leaf UUID (--uuid with --signature), or by signing --message with a
stored seed (--signer [--role]).

By default only unsigned leaves are filled; --update replaces existing
signatures instead. --first stops at the first matching leaf.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, set := range []bool{publicKey != "", uuid != "", signer != ""} {
				if set {
					modes++
				}
			}
			if modes != 1 {
				return usagef("exactly one of --public-key, --uuid or --signer is required")
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			sk, err := readDocument(args[0])
			if err != nil {
				return err
			}

			var matched bool
			if signer != "" {
				if message == "" {
					return usagef("--signer requires --message")
				}
				msg, err := readInput(message)
				if err != nil {
					return fmt.Errorf("read --message: %w", err)
				}
				store, err := keys.OpenSeedStore(cfg.Seeds.Dir)
				if err != nil {
					return err
				}
				s, err := store.Signer(signer, role)
				if err != nil {
					return err
				}
				sign := keys.SignTree
				if update {
					sign = keys.Resign
				}
				n, err := sign(sk, msg, s)
				if err != nil {
					return err
				}
				matched = n > 0
			} else {
				if signature == "" {
					return usagef("--signature is required")
				}
				sig, err := base64.StdEncoding.DecodeString(signature)
				if err != nil {
					return fmt.Errorf("decode --signature: %w", err)
				}
				switch {
				case uuid != "":
					matched = sk.SetSignatureForUUID(uuid, sig)
				default:
					_, pub, err := keys.ParsePublicKey(publicKey)
					if err != nil {
						return fmt.Errorf("parse --public-key: %w", err)
					}
					if update {
						matched = sk.UpdateSignatureForKey(pub, sig)
					} else {
						matched = sk.SetSignatureForKey(pub, sig, first)
					}
				}
			}
			if !matched {
				return errNoMatch
			}
			a.log.Debug().Str("uuid", sk.UUID).Msg("signed")
			return writeDocument(a.out, sk)
		},
	}
	f := cmd.Flags()
	f.StringVar(&publicKey, "public-key", "", "Public key of the leaves to sign (type:base64 or base64)")
	f.StringVar(&uuid, "uuid", "", "UUID of the leaf to sign")
	f.StringVar(&signature, "signature", "", "Base64 signature")
	f.BoolVar(&first, "first", false, "Stop at the first matching leaf")
	f.BoolVar(&update, "update", false, "Replace existing signatures instead of filling empty slots")
	f.StringVar(&signer, "signer", "", "Sign with this stored seed")
	f.StringVar(&role, "role", "", "Use a derived role seed of --signer")
	f.StringVar(&message, "message", "", "File holding the message to sign (- for stdin)")
	return cmd
}

func newUUIDsCmd(a *app) *cobra.Command {
	var publicKey string
	cmd := &cobra.Command{
		Use:   "uuids <document> --public-key <key>",
		Short: "List the UUID and description of every leaf holding a public key",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if publicKey == "" {
				return usagef("--public-key is required")
			}
			_, pub, err := keys.ParsePublicKey(publicKey)
			if err != nil {
				return fmt.Errorf("parse --public-key: %w", err)
			}
			sk, err := readDocument(args[0])
			if err != nil {
				return err
			}
			for _, ku := range sk.AppendKeyUUIDs(nil, pub) {
				fmt.Fprintf(a.out, "%s\t%s\n", ku.UUID, ku.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&publicKey, "public-key", "", "Public key to search for")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "verify <document> --message <file>",
		Short: "Check whether the signatures in a document satisfy its key tree",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return usagef("--message is required")
			}
			msg, err := readInput(message)
			if err != nil {
				return fmt.Errorf("read --message: %w", err)
			}
			sk, err := readDocument(args[0])
			if err != nil {
				return err
			}
			ok, err := keys.Satisfied(sk, msg)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s key is not satisfied", sk.Type())
			}
			_, err = fmt.Fprintln(a.out, "OK")
			return err
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "File holding the signed message (- for stdin)")
	return cmd
}

