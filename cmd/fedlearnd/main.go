package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/absmach/fedlearn/fedlearnd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fedlearnd",
		Short: "Fedlearn Daemon",
		Long:  `Fedlearnd is a daemon that manages Fedlearn services.`,
	}

	rootCmd.AddCommand(fedlearnd.NewAggregatorCmd())
	rootCmd.AddCommand(fedlearnd.NewAgentCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
