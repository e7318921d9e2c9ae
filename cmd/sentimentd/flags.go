package main

import "github.com/spf13/cobra"

var serveFlags struct {
	loadBalancer     bool
	address          string
	token            string
	privateKey       string
	certificateChain string
	secureSubnodes   bool
}

// registerServeFlags wires spec.md §6's CLI surface onto cmd.
func registerServeFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&serveFlags.loadBalancer, "load-balancer", false, "run in load-balancer mode instead of evaluator mode")
	cmd.Flags().StringVar(&serveFlags.address, "address", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&serveFlags.token, "token", "", "access token, must match ^[A-Za-z_]{13,}$")
	cmd.Flags().StringVar(&serveFlags.privateKey, "private-key", "", "PEM private key path (enables TLS with --certificate-chain)")
	cmd.Flags().StringVar(&serveFlags.certificateChain, "certificate-chain", "", "PEM certificate chain path (enables TLS with --private-key)")
	cmd.Flags().BoolVar(&serveFlags.secureSubnodes, "secure-subnodes", false, "dial worker addresses over TLS (load-balancer mode only)")
	cmd.Args = cobra.ArbitraryArgs // positional worker addresses, balancer mode only
}
