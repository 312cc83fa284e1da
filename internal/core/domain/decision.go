package domain

import "time"

// Códigos de motivo usados nas decisões e no log de auditoria.
const (
	ReasonSystemEndpoint     = "system_endpoint"
	ReasonWhitelisted        = "whitelisted_ip"
	ReasonBlacklisted        = "blacklisted_ip"
	ReasonTemporarilyBlocked = "temporarily_blocked"
	ReasonPerSecondExceeded  = "per_second_exceeded"
	ReasonPerMinuteExceeded  = "per_minute_exceeded"
	ReasonAutoBlocked        = "auto_blocked_anomaly"
	ReasonPassedAllChecks    = "passed_all_checks"
	ReasonNormalTraffic      = "normal_traffic"
	ReasonMultipleAnomalies  = "multiple_anomalies"
	ReasonFailOpenPrefix     = "fail_open:"
)

// Sinais de anomalia.
const (
	FlagGlobalTrafficSpike     = "global_traffic_spike"
	FlagRepeatedEndpointAccess = "repeated_endpoint_access"
	FlagHighVelocity           = "high_velocity"
	FlagApproachingRateLimit   = "approaching_rate_limit"
)

// Request descreve a requisição sem depender de net/http.
type Request struct {
	Path       string
	Header     map[string][]string
	RemoteAddr string
}

type RateLimitResult struct {
	Allowed    bool
	Reason     string
	Limit      int
	Current    int64
	RetryAfter time.Duration
}

type AnomalyResult struct {
	Suspicious  bool
	AutoBlocked bool
	Flags       []string
	RetryAfter  time.Duration
}

// Decision é o veredito final do coordenador para uma requisição.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Bypassed   bool          `json:"-"`
	IP         string        `json:"ip"`
	Endpoint   string        `json:"endpoint"`
	Reason     string        `json:"reason"`
	HTTPStatus int           `json:"-"`
	RetryAfter time.Duration `json:"-"`
	Limit      *int          `json:"limit,omitempty"`
	Current    *int64        `json:"current,omitempty"`
	Suspicious bool          `json:"suspicious,omitempty"`
	Anomalies  []string      `json:"anomalies,omitempty"`
}
