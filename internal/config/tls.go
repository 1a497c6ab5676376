package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// temporalClients are the binaries that dial Temporal and therefore load the
// Temporal TLS material at startup.
var temporalClients = map[string]bool{"core-api": true, "worker": true}

// TemporalTLSEnabled reports whether any Temporal TLS setting is present.
func (c *Config) TemporalTLSEnabled() bool {
	return c.TemporalTLSCert != "" || c.TemporalTLSKey != "" ||
		c.TemporalTLSCACert != "" || c.TemporalTLSServerName != ""
}

// TemporalTLS builds the config used to dial Temporal, or nil for plaintext.
//
// A client certificate is optional: a CA or server name alone gives a
// server-authenticated connection, e.g. to a frontend behind a private CA.
// With a certificate the connection is mutual TLS.
func (c *Config) TemporalTLS() (*tls.Config, error) {
	if !c.TemporalTLSEnabled() {
		return nil, nil
	}
	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		return nil, errors.New("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: c.TemporalTLSServerName,
	}

	if c.TemporalTLSCert != "" {
		cert, err := tls.LoadX509KeyPair(c.TemporalTLSCert, c.TemporalTLSKey)
		if err != nil {
			return nil, fmt.Errorf("load temporal client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if c.TemporalTLSCACert != "" {
		caPEM, err := os.ReadFile(c.TemporalTLSCACert)
		if err != nil {
			return nil, fmt.Errorf("read temporal CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("parse temporal CA cert %s: no certificates found", c.TemporalTLSCACert)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// validateTemporalTLS loads the TLS material for binaries that dial Temporal
// so a bad path fails at startup rather than on the first dial.
func (c *Config) validateTemporalTLS(binary string) error {
	if !temporalClients[binary] {
		if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
			return errors.New("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
		}
		return nil
	}
	if _, err := c.TemporalTLS(); err != nil {
		return fmt.Errorf("temporal tls: %w", err)
	}
	return nil
}
