package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"embed"
	"fmt"
)

// bundled holds certificates shipped inside the binary, used when
// tls.certificate.location=resource.
//
//go:embed resources/*.pem
var bundled embed.FS

// CertSource selects where the cloud protocol loads its trusted
// certificates from, matching SmartInspect's tls.certificate.location option.
type CertSource int

const (
	SourceResource CertSource = iota
	SourceFilepath
)

// Config is the cloud protocol's TLS option group.
type Config struct {
	Enabled  bool
	Source   CertSource
	Path     string // bundled resource name, or filesystem path
	Password string
}

// ClientConfig builds the TLS 1.2 client configuration for the cloud
// protocol. The loaded PEM certificates form the root CA pool; no client
// certificate is configured. A bundled resource certificate is never
// passphrase-encrypted (it ships public trust material only); a filesystem
// certificate file may be protected by the keystore in keystore.go.
func (c Config) ClientConfig() (*tls.Config, error) {
	pool := x509.NewCertPool()

	var pem []byte
	var err error
	switch c.Source {
	case SourceResource:
		pem, err = bundled.ReadFile("resources/" + c.Path)
	case SourceFilepath:
		pem, err = loadFilesystemCert(c.Path, c.Password)
	default:
		return nil, fmt.Errorf("tlsutil: unknown certificate source %d", c.Source)
	}
	if err != nil {
		return nil, err
	}

	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("tlsutil: no certificates found in %s", c.Path)
	}

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}, nil
}

func loadFilesystemCert(path, password string) ([]byte, error) {
	return LoadCertificate(path, password)
}

// LoadCertificate reads a PEM-encoded certificate through the keystore:
// with a non-empty password it decrypts the keystore entry at path; with an
// empty password it reads the unencrypted file at path + ".insecure".
func LoadCertificate(path, password string) ([]byte, error) {
	if password == "" {
		return LoadKey(path+".insecure", "")
	}
	return LoadKey(path, password)
}
