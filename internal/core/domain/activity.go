package domain

import "time"

// IPActivityRecord guarda os contadores e o estado de bloqueio de um endereço.
type IPActivityRecord struct {
	IP                 string     `json:"ip"`
	RequestsLastSecond int64      `json:"requests_last_second"`
	RequestsLastMinute int64      `json:"requests_last_minute"`
	TotalRequests      int64      `json:"total_requests"`
	SecondWindowStart  time.Time  `json:"second_window_start"`
	MinuteWindowStart  time.Time  `json:"minute_window_start"`
	LastSeen           time.Time  `json:"last_seen"`
	FirstDetected      time.Time  `json:"first_detected"`
	IsBlocked          bool       `json:"is_blocked"`
	BlockedUntil       *time.Time `json:"blocked_until,omitempty"`
	BlockReason        string     `json:"block_reason,omitempty"`
}

// NewIPActivityRecord cria um registro zerado com as janelas alinhadas em now.
func NewIPActivityRecord(ip string, now time.Time) IPActivityRecord {
	return IPActivityRecord{
		IP:                ip,
		SecondWindowStart: now.Truncate(time.Second),
		MinuteWindowStart: now.Truncate(time.Minute),
		LastSeen:          now,
		FirstDetected:     now,
	}
}

// Roll zera os contadores cujas janelas fixas já terminaram. Retorna true
// quando algum contador foi reiniciado.
func (r *IPActivityRecord) Roll(now time.Time) bool {
	changed := false
	if sec := now.Truncate(time.Second); !sec.Equal(r.SecondWindowStart) {
		r.RequestsLastSecond = 0
		r.SecondWindowStart = sec
		changed = true
	}
	if minute := now.Truncate(time.Minute); !minute.Equal(r.MinuteWindowStart) {
		r.RequestsLastMinute = 0
		r.MinuteWindowStart = minute
		changed = true
	}
	return changed
}

// Count registra uma requisição observada em now.
func (r *IPActivityRecord) Count(now time.Time) {
	r.Roll(now)
	r.RequestsLastSecond++
	r.RequestsLastMinute++
	r.TotalRequests++
	r.LastSeen = now
}

// BlockActive informa se existe um bloqueio vigente em now.
func (r IPActivityRecord) BlockActive(now time.Time) bool {
	return r.IsBlocked && r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}

// BlockExpired informa se o registro ainda carrega um bloqueio vencido.
func (r IPActivityRecord) BlockExpired(now time.Time) bool {
	return r.IsBlocked && !r.BlockActive(now)
}

func (r *IPActivityRecord) Block(until time.Time, reason string) {
	u := until
	r.IsBlocked = true
	r.BlockedUntil = &u
	r.BlockReason = reason
}

func (r *IPActivityRecord) Unblock() {
	r.IsBlocked = false
	r.BlockedUntil = nil
	r.BlockReason = ""
}
