package models

// Status reports the client configuration and backend liveness.
type Status struct {
	Model            string `json:"model"`
	Endpoint         string `json:"endpoint"`
	CacheSize        int    `json:"cache_size"`
	BackendReachable bool   `json:"backend_reachable"`
}
