package dto

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Cache     string `json:"cache"`
	Broker    string `json:"broker"`
	Timestamp string `json:"timestamp"`
}
