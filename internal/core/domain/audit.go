package domain

import "time"

type AuditStatus string

const (
	AuditAllowed    AuditStatus = "allowed"
	AuditBlocked    AuditStatus = "blocked"
	AuditSuspicious AuditStatus = "suspicious"
)

func (s AuditStatus) Valid() bool {
	switch s {
	case AuditAllowed, AuditBlocked, AuditSuspicious:
		return true
	}
	return false
}

// AuditLogEntry é uma linha imutável do log de decisões.
type AuditLogEntry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	IP        string      `json:"ip"`
	Endpoint  string      `json:"endpoint"`
	Status    AuditStatus `json:"status"`
	Reason    string      `json:"reason"`
}

// AuditFilter restringe consultas ao log. Campos vazios não filtram.
// Resultados vêm do mais recente para o mais antigo.
type AuditFilter struct {
	IP     string
	Status AuditStatus
	Since  time.Time
	Limit  int
}

func (f AuditFilter) Match(e AuditLogEntry) bool {
	if f.IP != "" && e.IP != f.IP {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
