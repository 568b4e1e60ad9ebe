package monitor

import "time"

type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	RedisLock  bool      `json:"redis_lock"`
	Buffer     bool      `json:"buffer"`
	BufferSize int       `json:"buffer_size"`
	LastCheck  time.Time `json:"last_check"`
}

// Healthy reports whether transitions can be committed. Redis only backs the
// optional task lock, so it does not gate health.
func (s Status) Healthy() bool {
	return s.PostgreSQL
}
