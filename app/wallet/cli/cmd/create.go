package cmd

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/storage"
	"github.com/spf13/cobra"
)

var seed string

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new wallet and derive its first account",
	RunE:  createRun,
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&seed, "seed", "s", "", "Hex seed to restore, random when empty.")
}

func createRun(cmd *cobra.Command, args []string) error {
	w, err := newWallet()
	if err != nil {
		return err
	}

	strg, err := openStorage()
	if err != nil {
		return err
	}
	defer strg.Close()

	if _, err := strg.Read(); !errors.Is(err, storage.ErrNotFound) {
		if err != nil {
			return err
		}
		return fmt.Errorf("wallet %s already exists", dbPath)
	}

	if _, err := w.CreateWallet(seed); err != nil {
		return err
	}

	for _, info := range w.Accounts() {
		fmt.Println(info.Account)
	}

	return save(w, strg)
}
