package domain

import (
	"context"
)

// TopicDetector finds clinical topics in a normalized (lower-cased) transcript.
type TopicDetector interface {
	Detect(normalizedTranscript string) []TopicTag
}

// PatientDirectory provides read access to the patient roster.
type PatientDirectory interface {
	GetPatient(ctx context.Context, id string) (*PatientProfile, error)
	ListPatients(ctx context.Context) ([]*PatientProfile, error)
}

// SummaryArchive is a short-lived hand-off buffer for summaries of ended consultations.
type SummaryArchive interface {
	Put(ctx context.Context, summary *ConsultationSummary) error
	Get(ctx context.Context, consultationID string) (*ConsultationSummary, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetEngineConfig() *EngineConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
