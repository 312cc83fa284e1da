package domain

import "time"

// TrafficSnapshot resume o tráfego auditado em uma janela curta.
type TrafficSnapshot struct {
	ID                int64     `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	RequestsPerSecond int64     `json:"requests_per_second"`
	RequestsPerMinute int64     `json:"requests_per_minute"`
	BlockedCount      int64     `json:"blocked_count"`
	SuspiciousCount   int64     `json:"suspicious_count"`
}
