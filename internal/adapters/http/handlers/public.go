// Package handlers agrupa os handlers HTTP públicos e administrativos.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/adapters/http/respond"
	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/services"
)

const (
	serviceName    = "DDoS Shield"
	serviceVersion = "1.0.0"
)

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func clientIP(r *http.Request) string {
	return services.ExtractIP(domain.Request{Header: r.Header, RemoteAddr: r.RemoteAddr})
}

func Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": timestamp(),
	})
}

func Root(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"message": serviceName + " API",
		"version": serviceVersion,
		"health":  "/health",
		"metrics": "/metrics",
	})
}

// ProtectedResource responde apenas quando a requisição passou pelo gate.
func ProtectedResource(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"message":   "Access granted to protected resource",
		"your_ip":   clientIP(r),
		"timestamp": timestamp(),
	})
}

// TestEndpoint devolve o corpo JSON recebido.
func TestEndpoint(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"message":       "POST request successful",
		"your_ip":       clientIP(r),
		"received_data": data,
		"timestamp":     timestamp(),
	})
}
