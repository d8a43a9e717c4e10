package service

import "context"

// Notifier is told about finished exports
type Notifier interface {
	ExportCompleted(ctx context.Context, filePath string, total int64) error
}
