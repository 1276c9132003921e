package cmd

import (
	"fmt"
	"time"

	"github.com/ardanlabs/raiwallet/business/web/errs"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var (
	from   string
	to     string
	amount string
)

type accountInfo struct {
	Account        string `json:"account"`
	Balance        string `json:"balance"`
	PendingBalance string `json:"pendingBalance"`
	BlockCount     int    `json:"blockCount"`
	Label          string `json:"label"`
}

type accountsInfo struct {
	Balance        string        `json:"balance"`
	PendingBalance string        `json:"pendingBalance"`
	Accounts       []accountInfo `json:"accounts"`
}

type blockInfo struct {
	Hash string `json:"hash"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balances reported by the wallet service",
	RunE:  balanceRun,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send raw from a wallet account",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&from, "from", "f", "", "Account to send from.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account to send to.")
	sendCmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount in raw.")
	sendCmd.MarkFlagRequired("from")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func client() *resty.Client {
	return resty.New().
		SetBaseURL(url).
		SetTimeout(10 * time.Second)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	var info accountsInfo
	var errResp errs.Response

	resp, err := client().R().
		SetContext(cmd.Context()).
		SetResult(&info).
		SetError(&errResp).
		Get("/v1/accounts")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("status[%d]: %s", resp.StatusCode(), errResp.Error)
	}

	for _, acc := range info.Accounts {
		fmt.Printf("%s  balance[%s] pending[%s] label[%s]\n", acc.Account, acc.Balance, acc.PendingBalance, acc.Label)
	}
	fmt.Printf("total  balance[%s] pending[%s]\n", info.Balance, info.PendingBalance)

	return nil
}

func sendRun(cmd *cobra.Command, args []string) error {
	body := struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount string `json:"amount"`
	}{
		From:   from,
		To:     to,
		Amount: amount,
	}

	var blk blockInfo
	var errResp errs.Response

	resp, err := client().R().
		SetContext(cmd.Context()).
		SetBody(body).
		SetResult(&blk).
		SetError(&errResp).
		Post("/v1/send")
	if err != nil {
		return err
	}
	if resp.IsError() {
		if len(errResp.Fields) > 0 {
			return fmt.Errorf("status[%d]: %s %v", resp.StatusCode(), errResp.Error, errResp.Fields)
		}
		return fmt.Errorf("status[%d]: %s", resp.StatusCode(), errResp.Error)
	}

	fmt.Println(blk.Hash)

	return nil
}
