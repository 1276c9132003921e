package main

import "github.com/ardanlabs/raiwallet/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
