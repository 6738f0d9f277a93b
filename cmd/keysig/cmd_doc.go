package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"xdao.co/keysig/keysig"
	"xdao.co/keysig/storage/keystore"
)

func newDocCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Convert between the wire and document forms",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return usagef("doc needs a subcommand: from-wire, to-wire, fingerprint")
		},
	}
	cmd.AddCommand(newDocFromWireCmd(a), newDocToWireCmd(a), newDocFingerprintCmd(a))
	return cmd
}

// decodeWireFile reads a wire file as raw bytes, or as hex when asHex is set.
func decodeWireFile(path string, asHex bool) ([]byte, error) {
	b, err := readInput(path)
	if err != nil {
		return nil, err
	}
	if !asHex {
		return b, nil
	}
	return hex.DecodeString(strings.TrimSpace(string(b)))
}

func newDocFromWireCmd(a *app) *cobra.Command {
	var keyPath, sigPath string
	var asHex bool
	cmd := &cobra.Command{
		Use:   "from-wire --key <file> [--sig <file>] [--hex]",
		Short: "Decode a wire key (and signature) into a document",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyPath == "" {
				return usagef("--key is required")
			}
			if _, err := a.config(); err != nil {
				return err
			}
			key, err := decodeWireFile(keyPath, asHex)
			if err != nil {
				return fmt.Errorf("read --key: %w", err)
			}
			var sig []byte
			if sigPath != "" {
				if sig, err = decodeWireFile(sigPath, asHex); err != nil {
					return fmt.Errorf("read --sig: %w", err)
				}
			}
			sk, err := keysig.UnmarshalWire(key, sig)
			if err != nil {
				return err
			}
			return writeDocument(a.out, sk)
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "Wire-encoded key file")
	cmd.Flags().StringVar(&sigPath, "sig", "", "Wire-encoded signature file")
	cmd.Flags().BoolVar(&asHex, "hex", false, "Inputs are hex text instead of raw bytes")
	return cmd
}

func newDocToWireCmd(a *app) *cobra.Command {
	var keyOut, sigOut string
	var asHex bool
	cmd := &cobra.Command{
		Use:   "to-wire <document> --key-out <file> [--sig-out <file>] [--hex]",
		Short: "Encode a document into wire key and signature bytes",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyOut == "" {
				return usagef("--key-out is required")
			}
			if _, err := a.config(); err != nil {
				return err
			}
			sk, err := readDocument(args[0])
			if err != nil {
				return err
			}
			key, err := sk.MarshalKey()
			if err != nil {
				return err
			}
			if err := writeWireFile(keyOut, key, asHex); err != nil {
				return err
			}
			if sigOut != "" {
				sig, err := sk.MarshalSignature()
				if err != nil {
					return err
				}
				if err := writeWireFile(sigOut, sig, asHex); err != nil {
					return err
				}
			}
			id, err := keystore.Fingerprint(sk)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, id)
			return err
		},
	}
	cmd.Flags().StringVar(&keyOut, "key-out", "", "Write the wire key here")
	cmd.Flags().StringVar(&sigOut, "sig-out", "", "Write the wire signature here")
	cmd.Flags().BoolVar(&asHex, "hex", false, "Write hex text instead of raw bytes")
	return cmd
}

func writeWireFile(path string, b []byte, asHex bool) error {
	if asHex {
		b = []byte(hex.EncodeToString(b) + "\n")
	}
	return os.WriteFile(path, b, 0o644)
}

func newDocFingerprintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <document>",
		Short: "Print the CID of the document's wire key, ignoring signatures",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sk, err := readDocument(args[0])
			if err != nil {
				return err
			}
			id, err := keystore.Fingerprint(sk)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, id)
			return err
		},
	}
}
