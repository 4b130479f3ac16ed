package couchbase

import (
	"context"
	"encoding/json"
	"time"
)

// Client bundles the connection, document and lock managers
type Client struct {
	connManager *ConnectionManager
	docManager  *DocumentManager
}

// NewClient creates a new Couchbase client
func NewClient(url, username, password, bucketName string) (*Client, error) {
	connManager, err := NewConnectionManager(url, username, password, bucketName)
	if err != nil {
		return nil, err
	}

	return &Client{
		connManager: connManager,
		docManager:  NewDocumentManager(connManager),
	}, nil
}

// Close closes the Couchbase connection
func (c *Client) Close() error {
	return c.connManager.Close()
}

// NewLocker returns an ingest lock owned by owner
func (c *Client) NewLocker(owner string, ttl time.Duration) *DatabaseLocker {
	return NewDatabaseLocker(c.connManager.GetBucket(), owner, ttl)
}

// UpsertDocument stores or updates a document
func (c *Client) UpsertDocument(ctx context.Context, docID string, data interface{}) error {
	return c.docManager.UpsertDocument(ctx, docID, data)
}

// InsertDocument stores a new document, rejecting an existing ID
func (c *Client) InsertDocument(ctx context.Context, docID string, data interface{}) error {
	return c.docManager.InsertDocument(ctx, docID, data)
}

// CheckLockStatus reports whether an ingest currently holds the bucket lock
func (c *Client) CheckLockStatus(ctx context.Context) (bool, error) {
	return NewDatabaseLocker(c.connManager.GetBucket(), "", 0).CheckLockStatus(ctx)
}

// QueryRows runs a N1QL query
func (c *Client) QueryRows(ctx context.Context, statement string, params map[string]interface{}) ([]json.RawMessage, error) {
	return c.docManager.QueryRows(ctx, statement, params)
}

// EnsurePrimaryIndex creates the bucket primary index if missing
func (c *Client) EnsurePrimaryIndex(ctx context.Context) error {
	return c.docManager.EnsurePrimaryIndex(ctx)
}

// BucketName returns the bucket name
func (c *Client) BucketName() string {
	return c.docManager.BucketName()
}
