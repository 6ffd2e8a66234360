package storage

import "trademe-analyzer/models"

// ReportWriter is the interface any report destination must satisfy.
type ReportWriter interface {
	Write(result *models.AnalysisResult) error
	Close() error
}
