package models

// ServiceStatus is the payload of GET /api/service/{name}/status.
type ServiceStatus struct {
	Name       string `json:"-"`
	Active     bool   `json:"active"`
	Status     string `json:"status"`
	UptimeStr  string `json:"uptime_str,omitempty"`
	LastRunStr string `json:"last_run_str,omitempty"`
}

// VersionInfo is the payload of GET /api/version.
type VersionInfo struct {
	CommitHash    string `json:"commit_hash"`
	CommitShort   string `json:"commit_short"`
	CommitDate    string `json:"commit_date"`
	CommitMessage string `json:"commit_message"`
	Branch        string `json:"branch"`
	Repository    string `json:"repository"`
	Error         string `json:"error,omitempty"`
}

// UpdateCheck is the payload of GET /api/version/check.
type UpdateCheck struct {
	UpdateAvailable bool   `json:"update_available"`
	CurrentCommit   string `json:"current_commit"`
	CurrentDate     string `json:"current_date"`
	LatestCommit    string `json:"latest_commit"`
	LatestDate      string `json:"latest_date"`
	LatestMessage   string `json:"latest_message"`
	LatestAuthor    string `json:"latest_author"`
	Error           string `json:"error,omitempty"`
}

// UpdateTrigger is the payload of POST /api/version/update.
type UpdateTrigger struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// UpdateLog is the payload of GET /api/version/log.
type UpdateLog struct {
	Log string `json:"log"`
}
