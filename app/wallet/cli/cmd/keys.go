package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	newPassphrase string
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive the next account from the wallet seed",
	RunE:  deriveRun,
}

var importCmd = &cobra.Command{
	Use:   "import <private-key>",
	Short: "Import an account from a hex private key",
	Args:  cobra.ExactArgs(1),
	RunE:  importRun,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Print the wallet seed",
	RunE:  seedRun,
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the wallet passphrase",
	RunE:  passwdRun,
}

func init() {
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(passwdCmd)
	passwdCmd.Flags().StringVarP(&newPassphrase, "new", "n", "", "The new passphrase.")
	passwdCmd.MarkFlagRequired("new")
}

func deriveRun(cmd *cobra.Command, args []string) error {
	w, strg, err := openWallet()
	if err != nil {
		return err
	}
	defer strg.Close()

	acc, err := w.NewKeyFromSeed()
	if err != nil {
		return err
	}
	fmt.Println(acc)

	return save(w, strg)
}

func importRun(cmd *cobra.Command, args []string) error {
	w, strg, err := openWallet()
	if err != nil {
		return err
	}
	defer strg.Close()

	acc, err := w.ImportKey(args[0])
	if err != nil {
		return err
	}
	fmt.Println(acc)

	return save(w, strg)
}

func seedRun(cmd *cobra.Command, args []string) error {
	w, strg, err := openWallet()
	if err != nil {
		return err
	}
	defer strg.Close()

	pass, err := getPassphrase()
	if err != nil {
		return err
	}

	s, err := w.Seed(pass)
	if err != nil {
		return err
	}
	fmt.Println(s)

	return nil
}

func passwdRun(cmd *cobra.Command, args []string) error {
	w, strg, err := openWallet()
	if err != nil {
		return err
	}
	defer strg.Close()

	pass, err := getPassphrase()
	if err != nil {
		return err
	}

	if err := w.ChangePassphrase(pass, newPassphrase); err != nil {
		return err
	}

	return save(w, strg)
}
