package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ActiveSessionKey returns the cache key for a participant's active study session ID.
func (r *CacheKeyStruct) ActiveSessionKey(participantID string) string {
	return fmt.Sprintf("participant:%s:active_session", participantID)
}

// AdminSessionKey returns the cache key for an admin login session.
func (r *CacheKeyStruct) AdminSessionKey(adminID int) string {
	return fmt.Sprintf("admin_login:%d", adminID)
}

// PhaseMonitorChannel returns the Redis PubSub channel name carrying live
// phase-transition events for the researcher monitor.
func (r *CacheKeyStruct) PhaseMonitorChannel() string {
	return "phase_monitor"
}

var CacheKey = NewCacheKeyStruct()
