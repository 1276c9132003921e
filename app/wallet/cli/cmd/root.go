// Package cmd contains the wallet command line app.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/storage/bolt"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/wallet"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

const passphraseEnv = "WALLET_WALLET_PASSPHRASE"

var (
	dbPath     string
	passphrase string
	iterations int
	url        string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "zwallet/wallet.db", "Path to the wallet database.")
	rootCmd.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "Wallet passphrase, defaults to $"+passphraseEnv+".")
	rootCmd.PersistentFlags().IntVarP(&iterations, "iterations", "i", 5000, "Key derivation iterations for new wallets.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the wallet service.")
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:          "wallet",
	Short:        "Manage a block lattice wallet",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// =============================================================================

func getPassphrase() (string, error) {
	if passphrase != "" {
		return passphrase, nil
	}

	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}

	return "", errors.New("passphrase required")
}

func newWallet() (*wallet.Wallet, error) {
	pass, err := getPassphrase()
	if err != nil {
		return nil, err
	}

	return wallet.New(wallet.Config{
		Passphrase: pass,
		Iterations: iterations,
	})
}

// openStorage opens the wallet database, creating the folder if needed.
func openStorage() (*bolt.Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, errors.Wrap(err, "creating wallet folder")
	}

	return bolt.New(dbPath)
}

// openWallet loads the wallet stored in the database. The caller must
// close the returned storage.
func openWallet() (*wallet.Wallet, *bolt.Bolt, error) {
	w, err := newWallet()
	if err != nil {
		return nil, nil, err
	}

	strg, err := openStorage()
	if err != nil {
		return nil, nil, err
	}

	pack, err := strg.Read()
	if err != nil {
		strg.Close()
		return nil, nil, errors.Wrapf(err, "reading wallet %s", dbPath)
	}

	if err := w.Load(pack); err != nil {
		strg.Close()
		return nil, nil, errors.Wrap(err, "loading wallet")
	}

	return w, strg, nil
}

// save writes the wallet back to the database.
func save(w *wallet.Wallet, strg *bolt.Bolt) error {
	pack, err := w.Pack()
	if err != nil {
		return errors.Wrap(err, "packing wallet")
	}

	if err := strg.Write(pack); err != nil {
		return errors.Wrap(err, "storing wallet")
	}

	fmt.Println("checksum:", w.Checksum())

	return nil
}
