package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Print the accounts stored in the wallet",
	RunE:  accountsRun,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

func accountsRun(cmd *cobra.Command, args []string) error {
	w, strg, err := openWallet()
	if err != nil {
		return err
	}
	defer strg.Close()

	for _, info := range w.Accounts() {
		fmt.Printf("%s  balance[%s] blocks[%d] label[%s]\n", info.Account, info.Balance.Dec(), info.BlockCount, info.Label)
	}

	return nil
}
