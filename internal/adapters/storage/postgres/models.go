package postgres

import (
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

type ipActivityModel struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement"`
	IP                 string    `gorm:"size:64;uniqueIndex;not null"`
	RequestsLastSecond int64     `gorm:"not null;default:0"`
	RequestsLastMinute int64     `gorm:"not null;default:0"`
	TotalRequests      int64     `gorm:"not null;default:0"`
	SecondWindowStart  time.Time `gorm:"not null"`
	MinuteWindowStart  time.Time `gorm:"not null"`
	LastSeen           time.Time `gorm:"not null"`
	FirstDetected      time.Time `gorm:"not null"`
	IsBlocked          bool      `gorm:"index;not null;default:false"`
	BlockedUntil       *time.Time
	BlockReason        string `gorm:"size:128;not null;default:''"`
}

func (ipActivityModel) TableName() string { return "ip_activity" }

func activityModelFrom(rec domain.IPActivityRecord) ipActivityModel {
	m := ipActivityModel{
		IP:                 rec.IP,
		RequestsLastSecond: rec.RequestsLastSecond,
		RequestsLastMinute: rec.RequestsLastMinute,
		TotalRequests:      rec.TotalRequests,
		SecondWindowStart:  rec.SecondWindowStart.UTC(),
		MinuteWindowStart:  rec.MinuteWindowStart.UTC(),
		LastSeen:           rec.LastSeen.UTC(),
		FirstDetected:      rec.FirstDetected.UTC(),
		IsBlocked:          rec.IsBlocked,
		BlockReason:        rec.BlockReason,
	}
	if rec.BlockedUntil != nil {
		until := rec.BlockedUntil.UTC()
		m.BlockedUntil = &until
	}
	return m
}

func (m ipActivityModel) toDomain() domain.IPActivityRecord {
	rec := domain.IPActivityRecord{
		IP:                 m.IP,
		RequestsLastSecond: m.RequestsLastSecond,
		RequestsLastMinute: m.RequestsLastMinute,
		TotalRequests:      m.TotalRequests,
		SecondWindowStart:  m.SecondWindowStart.UTC(),
		MinuteWindowStart:  m.MinuteWindowStart.UTC(),
		LastSeen:           m.LastSeen.UTC(),
		FirstDetected:      m.FirstDetected.UTC(),
		IsBlocked:          m.IsBlocked,
		BlockReason:        m.BlockReason,
	}
	if m.BlockedUntil != nil {
		until := m.BlockedUntil.UTC()
		rec.BlockedUntil = &until
	}
	return rec
}

type blacklistModel struct {
	ID      uint64    `gorm:"primaryKey;autoIncrement"`
	IP      string    `gorm:"size:64;uniqueIndex;not null"`
	Reason  string    `gorm:"size:255;not null;default:''"`
	AddedAt time.Time `gorm:"index;not null"`
}

func (blacklistModel) TableName() string { return "blacklist" }

func (m blacklistModel) toDomain() domain.BlacklistEntry {
	return domain.BlacklistEntry{IP: m.IP, Reason: m.Reason, AddedAt: m.AddedAt.UTC()}
}

type whitelistModel struct {
	ID      uint64    `gorm:"primaryKey;autoIncrement"`
	IP      string    `gorm:"size:64;uniqueIndex;not null"`
	AddedAt time.Time `gorm:"index;not null"`
}

func (whitelistModel) TableName() string { return "whitelist" }

func (m whitelistModel) toDomain() domain.WhitelistEntry {
	return domain.WhitelistEntry{IP: m.IP, AddedAt: m.AddedAt.UTC()}
}

type ruleSetModel struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement"`
	MaxRequestsPerSecond int       `gorm:"not null"`
	MaxRequestsPerMinute int       `gorm:"not null"`
	BlockDuration        int       `gorm:"not null"`
	AnomalyThreshold     int       `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"index;not null;autoUpdateTime:false"`
}

func (ruleSetModel) TableName() string { return "rule_sets" }

func (m ruleSetModel) toDomain() domain.RuleSet {
	return domain.RuleSet{
		ID:                   m.ID,
		MaxRequestsPerSecond: m.MaxRequestsPerSecond,
		MaxRequestsPerMinute: m.MaxRequestsPerMinute,
		BlockDuration:        m.BlockDuration,
		AnomalyThreshold:     m.AnomalyThreshold,
		UpdatedAt:            m.UpdatedAt.UTC(),
	}
}

type auditLogModel struct {
	ID       string    `gorm:"primaryKey;size:36"`
	LoggedAt time.Time `gorm:"column:logged_at;index;not null"`
	IP       string    `gorm:"size:64;index;not null"`
	Endpoint string    `gorm:"size:512;not null"`
	Status   string    `gorm:"size:16;index;not null"`
	Reason   string    `gorm:"size:512;not null;default:''"`
}

func (auditLogModel) TableName() string { return "audit_logs" }

func (m auditLogModel) toDomain() domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ID:        m.ID,
		Timestamp: m.LoggedAt.UTC(),
		IP:        m.IP,
		Endpoint:  m.Endpoint,
		Status:    domain.AuditStatus(m.Status),
		Reason:    m.Reason,
	}
}

type trafficSnapshotModel struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	TakenAt           time.Time `gorm:"column:taken_at;index;not null"`
	RequestsPerSecond int64     `gorm:"not null"`
	RequestsPerMinute int64     `gorm:"not null"`
	BlockedCount      int64     `gorm:"not null"`
	SuspiciousCount   int64     `gorm:"not null"`
}

func (trafficSnapshotModel) TableName() string { return "traffic_snapshots" }

func (m trafficSnapshotModel) toDomain() domain.TrafficSnapshot {
	return domain.TrafficSnapshot{
		ID:                m.ID,
		Timestamp:         m.TakenAt.UTC(),
		RequestsPerSecond: m.RequestsPerSecond,
		RequestsPerMinute: m.RequestsPerMinute,
		BlockedCount:      m.BlockedCount,
		SuspiciousCount:   m.SuspiciousCount,
	}
}
