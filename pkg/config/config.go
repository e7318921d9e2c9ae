// Package config validates the startup flags shared by the evaluator and
// load-balancer modes.
package config

import (
	"fmt"
	"regexp"
)

// tokenPattern is the spec-mandated shape of an access token: thirteen or
// more Latin letters or underscores.
var tokenPattern = regexp.MustCompile(`^[A-Za-z_]{13,}$`)

// ValidateToken reports whether token matches the required token shape.
func ValidateToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// TLSPair is the private-key/certificate-chain flag pair used to build
// server TLS credentials. It is not used for the balancer's outbound
// connections to subnodes, whose TLS is chosen by --secure-subnodes alone.
type TLSPair struct {
	PrivateKeyPath       string
	CertificateChainPath string
}

// Validate ensures either both paths are set (TLS) or neither is (plaintext).
func (p TLSPair) Validate() error {
	hasKey := p.PrivateKeyPath != ""
	hasChain := p.CertificateChainPath != ""
	if hasKey == hasChain {
		return nil
	}
	return fmt.Errorf("config: --private-key and --certificate-chain must both be set, or neither")
}

// Secure reports whether the pair designates TLS transport.
func (p TLSPair) Secure() bool {
	return p.PrivateKeyPath != "" && p.CertificateChainPath != ""
}

// Config is the fully validated set of startup parameters for either mode.
type Config struct {
	LoadBalancer   bool
	Address        string
	Token          string
	TLS            TLSPair
	SecureSubnodes bool
	Subnodes       []string
}

// Validate checks every field that admits an invalid combination, returning
// the first error found.
func (c Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("config: --address is required")
	}
	if !ValidateToken(c.Token) {
		return fmt.Errorf("config: invalid --token %q: must match %s", c.Token, tokenPattern.String())
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	if !c.LoadBalancer && len(c.Subnodes) > 0 {
		return fmt.Errorf("config: subnode addresses are only meaningful in load-balancer mode")
	}
	return nil
}
