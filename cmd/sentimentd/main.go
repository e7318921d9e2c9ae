package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "sentimentd",
	Short:   "Sentiment-inference serving fabric: evaluator node or load balancer",
	Long:    `sentimentd runs either an evaluator node, which scores text phrases on a GPU-resident model, or a load balancer, which dispatches batches across a fixed pool of evaluator nodes by predicted memory pressure.`,
	Version: version,
	RunE:    runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	registerServeFlags(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
