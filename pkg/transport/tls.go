package transport

import (
	"crypto/tls"
	"net"

	"github.com/mercuryirc/mercury/internal/config"
)

// TLSConfig builds the client TLS configuration for a server. With
// acceptAllCerts false the platform trust store and hostname checks
// apply; with it true any certificate is accepted, any chain, no
// hostname verification. Lenient mode exists for self-signed test
// servers and must stay an explicit opt-in.
func TLSConfig(serverName string, acceptAllCerts bool) *tls.Config {
	if acceptAllCerts {
		return &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &tls.Config{
		ServerName: serverName,
	}
}

func dialTLS(server config.ServerConfig) (net.Conn, error) {
	return tls.Dial("tcp", server.Addr(), TLSConfig(server.Host, server.AcceptAllCerts))
}
