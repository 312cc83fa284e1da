// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Priyamannem/ddos-shield/internal/adapters/http/respond"
	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

const securityWarning = "suspicious_activity_detected"

type blockedResponse struct {
	Status     string   `json:"status"`
	IP         string   `json:"ip"`
	Reason     string   `json:"reason"`
	Timestamp  string   `json:"timestamp"`
	RetryAfter *int     `json:"retry_after,omitempty"`
	Limit      *int     `json:"limit,omitempty"`
	Current    *int64   `json:"current,omitempty"`
	Anomalies  []string `json:"anomalies,omitempty"`
}

// NewMitigationMiddleware submete toda requisição ao gate antes do handler.
func NewMitigationMiddleware(gate ports.Gate, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := gate.Process(r.Context(), domain.Request{
				Path:       r.URL.Path,
				Header:     r.Header,
				RemoteAddr: r.RemoteAddr,
			})
			if err != nil {
				if errors.Is(err, domain.ErrAuditUnavailable) {
					logger.WithError(err).Error("request rejected, audit log unavailable")
					respond.Error(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
					return
				}
				logger.WithError(err).Error("mitigation pipeline failed")
				respond.Error(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			if !decision.Allowed {
				writeBlocked(w, decision)
				return
			}

			if decision.Suspicious {
				w.Header().Set("X-Security-Warning", securityWarning)
				if len(decision.Anomalies) > 0 {
					w.Header().Set("X-Anomalies", strings.Join(decision.Anomalies, ","))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeBlocked(w http.ResponseWriter, d domain.Decision) {
	body := blockedResponse{
		Status:    "blocked",
		IP:        d.IP,
		Reason:    d.Reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Limit:     d.Limit,
		Current:   d.Current,
		Anomalies: d.Anomalies,
	}
	if d.RetryAfter > 0 {
		seconds := int(math.Ceil(d.RetryAfter.Seconds()))
		body.RetryAfter = &seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	status := d.HTTPStatus
	if status == 0 {
		status = http.StatusTooManyRequests
	}
	respond.JSON(w, status, body)
}
