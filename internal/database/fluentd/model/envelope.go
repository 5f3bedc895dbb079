package model

import "time"

const TimeLayout = "2006-01-02 15:04:05.999999 UTC"

func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Envelope 每筆 fluentd 紀錄共用的欄位，由 repository 補齊
type Envelope struct {
	ProjectName string `json:"project_name,omitempty"`
	Version     string `json:"version,omitempty"`
	LoggedAt    string `json:"logged_at"`
}

func (e *Envelope) Stamp(projectName, version string, now time.Time) {
	if e.ProjectName == "" {
		e.ProjectName = projectName
	}
	if e.Version == "" {
		e.Version = version
	}
	if e.LoggedAt == "" {
		e.LoggedAt = Timestamp(now)
	}
}
