package domain

import "time"

type BlacklistEntry struct {
	IP      string    `json:"ip"`
	Reason  string    `json:"reason"`
	AddedAt time.Time `json:"added_at"`
}

type WhitelistEntry struct {
	IP      string    `json:"ip"`
	AddedAt time.Time `json:"added_at"`
}

// ReputationStatus é o resultado da consulta de reputação de um endereço.
type ReputationStatus string

const (
	ReputationWhitelisted        ReputationStatus = "whitelisted"
	ReputationBlacklisted        ReputationStatus = "blacklisted"
	ReputationTemporarilyBlocked ReputationStatus = "temporarily_blocked"
	ReputationNone               ReputationStatus = "none"
)
