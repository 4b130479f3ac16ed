package couchbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// ErrDocumentExists is returned by InsertDocument when the ID is already stored
var ErrDocumentExists = errors.New("document already exists")

// DocumentManager handles document reads, writes and N1QL queries
type DocumentManager struct {
	cluster    *gocb.Cluster
	bucket     *gocb.Bucket
	bucketName string
}

// NewDocumentManager creates a new document manager
func NewDocumentManager(cm *ConnectionManager) *DocumentManager {
	return &DocumentManager{
		cluster:    cm.GetCluster(),
		bucket:     cm.GetBucket(),
		bucketName: cm.GetBucketName(),
	}
}

// UpsertDocument stores or updates a document in the default collection
func (dm *DocumentManager) UpsertDocument(ctx context.Context, docID string, data interface{}) error {
	col := dm.bucket.DefaultCollection()

	_, err := col.Upsert(docID, data, &gocb.UpsertOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", docID, err)
	}
	return nil
}

// InsertDocument stores a new document and fails with ErrDocumentExists if docID is taken
func (dm *DocumentManager) InsertDocument(ctx context.Context, docID string, data interface{}) error {
	col := dm.bucket.DefaultCollection()

	_, err := col.Insert(docID, data, &gocb.InsertOptions{Context: ctx})
	if errors.Is(err, gocb.ErrDocumentExists) {
		return fmt.Errorf("%w: %s", ErrDocumentExists, docID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert document %s: %w", docID, err)
	}
	return nil
}

// QueryRows runs a N1QL statement with named parameters and returns the raw rows
func (dm *DocumentManager) QueryRows(ctx context.Context, statement string, params map[string]interface{}) ([]json.RawMessage, error) {
	rows, err := dm.cluster.Query(statement, queryOptions(ctx, params))
	if err != nil {
		log.Error().
			Err(err).
			Str("query", statement).
			Msg("Query failed")
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []json.RawMessage
	for rows.Next() {
		var row json.RawMessage
		if err := rows.Row(&row); err != nil {
			log.Warn().Err(err).Msg("Failed to decode query row")
			continue
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query iteration failed: %w", err)
	}

	return results, nil
}

// queryOptions waits for the index to catch up with every prior mutation, so
// a document written just before the query is always part of its result
func queryOptions(ctx context.Context, params map[string]interface{}) *gocb.QueryOptions {
	return &gocb.QueryOptions{
		Context:         ctx,
		NamedParameters: params,
		ScanConsistency: gocb.QueryScanConsistencyRequestPlus,
	}
}

// EnsurePrimaryIndex creates the bucket primary index used by ad hoc N1QL queries
func (dm *DocumentManager) EnsurePrimaryIndex(ctx context.Context) error {
	statement := fmt.Sprintf("CREATE PRIMARY INDEX IF NOT EXISTS ON `%s`", dm.bucketName)
	rows, err := dm.cluster.Query(statement, &gocb.QueryOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("failed to ensure primary index on %s: %w", dm.bucketName, err)
	}
	return rows.Close()
}

// BucketName returns the bucket the manager writes to
func (dm *DocumentManager) BucketName() string {
	return dm.bucketName
}
