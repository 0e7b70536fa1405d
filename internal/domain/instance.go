package domain

import "time"

// InstanceRecord describes a launched server. It is persisted next to the
// server's directories so a later run can find a server whose host was
// killed before teardown could run.
type InstanceRecord struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	Socket    string    `json:"socket,omitempty"`
	BaseDir   string    `json:"base_dir"`
	DataDir   string    `json:"data_dir"`
	StartedAt time.Time `json:"started_at"`
}

// IsZero reports whether the record is empty.
func (r InstanceRecord) IsZero() bool {
	return r.PID == 0
}
