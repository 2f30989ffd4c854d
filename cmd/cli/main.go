package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/absmach/fedlearn/cli"
	"github.com/absmach/fedlearn/pkg/sdk"
)

const (
	defServerURL       = "http://localhost:8080"
	defTLSVerification = false
)

func main() {
	var serverURL string

	rootCmd := &cobra.Command{
		Use:   "fedlearn-cli",
		Short: "Fedlearn CLI",
		Long:  `Fedlearn CLI is a command line interface for interacting with the aggregator and its agents.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				ServerURL:       serverURL,
				TLSVerification: defTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server-url", "s", defServerURL, "Aggregator base URL")

	rootCmd.AddCommand(cli.NewNodesCmd())
	rootCmd.AddCommand(cli.NewModelCmd())
	rootCmd.AddCommand(cli.NewStatusCmd())
	rootCmd.AddCommand(cli.NewTrainCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
