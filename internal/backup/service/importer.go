package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ncobase/shopconsole/concurrency"
	"github.com/ncobase/shopconsole/internal/backup/data/repository"
	"github.com/ncobase/shopconsole/internal/backup/structs"
	"github.com/ncobase/shopconsole/logging/logger"
	"github.com/ncobase/shopconsole/logging/observes"
	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel/attribute"
)

// Importer replaces the bot users collection from an uploaded JSON array
type Importer struct {
	users         repository.UserRepository
	transactional bool
	gate          *concurrency.Manager
	metrics       *Metrics
}

// NewImporter creates an importer. transactional wraps the delete and
// insert in one transaction, which needs a replica set.
func NewImporter(users repository.UserRepository, transactional bool) *Importer {
	gate, _ := concurrency.NewManager(1)
	return &Importer{
		users:         users,
		transactional: transactional,
		gate:          gate,
	}
}

// SetMetrics sets the metrics recorder
func (i *Importer) SetMetrics(m *Metrics) { i.metrics = m }

// ImportAll validates body and replaces the collection with its records.
// Invalid payloads are rejected before anything is deleted.
func (i *Importer) ImportAll(ctx context.Context, body []byte) (int, error) {
	docs, err := decodeRecords(body)
	if err != nil {
		i.metrics.importRejected()
		return 0, err
	}

	if !i.gate.TryAcquire() {
		return 0, structs.ErrImportBusy
	}
	defer i.gate.Release()

	ctx, span := observes.StartSpan(ctx, "backup.import", attribute.Int("records", len(docs)))
	n, err := i.users.ReplaceAll(ctx, docs, i.transactional)
	observes.EndSpan(span, err)
	if err != nil {
		logger.Error(ctx, fmt.Sprintf("Failed to import TG data: %v", err), "userCount", len(docs))
		return 0, err
	}

	i.metrics.importDone(n)
	logger.Info(ctx, "Telegram database imported successfully",
		logger.EventLevelKey, logger.EventLevelSuccess,
		"userCount", n,
	)
	return n, nil
}

// decodeRecords checks that body is a JSON array of objects and converts
// every element from relaxed extended JSON into a document
func decodeRecords(body []byte) ([]any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, structs.ErrImportShapeInvalid
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", structs.ErrImportShapeInvalid, err)
	}

	docs := make([]any, 0, len(elems))
	for idx, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", structs.ErrImportShapeInvalid, idx)
		}
		var doc bson.D
		if err := bson.UnmarshalExtJSON(elem, false, &doc); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", structs.ErrImportShapeInvalid, idx, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
