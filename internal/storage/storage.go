// Package storage holds the file sinks used by the fetch and decode stages.
package storage

import "launchpadIndexer/internal/model"

// Storage defines a sink for log records.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}
