package services

import (
	"net"
	"net/textproto"
	"strings"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

// UnknownIP identifica clientes cujo endereço não pôde ser determinado.
const UnknownIP = "unknown"

// ExtractIP resolve o endereço do cliente: primeiro item de X-Forwarded-For,
// depois X-Real-IP e por fim o endereço do peer. Os cabeçalhos não são validados.
func ExtractIP(req domain.Request) string {
	header := textproto.MIMEHeader(req.Header)

	if forwarded := header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	remote := strings.TrimSpace(req.RemoteAddr)
	if remote == "" {
		return UnknownIP
	}
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	return remote
}
