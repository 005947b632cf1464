package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "contractd",
		Short:         "Rental contract lifecycle server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		tokenCmd(),
		userCmd(),
		propertyCmd(),
		verifyCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
