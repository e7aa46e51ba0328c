// Command nbtlsclient establishes TLS connections using non-blocking
// polling and prints the negotiated state.
package main

import (
	"github.com/apex/log"
	"github.com/ooni/nbtls/internal/log/handlers/cli"
	"github.com/spf13/cobra"
)

func main() {
	var verbose bool
	root := &cobra.Command{
		Use:           "nbtlsclient",
		Short:         "Non-blocking TLS client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Run in verbose mode")
	root.AddCommand(connectSubcommand())

	log.SetHandler(cli.Default)
	log.SetLevel(log.InfoLevel)

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("nbtlsclient failed")
	}
}
