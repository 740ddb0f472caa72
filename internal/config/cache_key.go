package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RevokedTokenKey returns the cache key marking a JWT id as logged out.
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}

// SessionAttendanceChannel returns the Redis PubSub channel carrying
// attendance changes for one class session.
func (r *CacheKeyStruct) SessionAttendanceChannel(sessionID int) string {
	return fmt.Sprintf("session:%d:attendance", sessionID)
}

var CacheKey = NewCacheKeyStruct()
