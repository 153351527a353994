package importer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultScanBucket is the object store bucket holding scanned photos.
const DefaultScanBucket = "shopping-scans"

// ObjectStore is the subset of an object store the archive writes to.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
}

// ObjectArchive stores each photo as "<user>/<date>/<id>" in an object store.
type ObjectArchive struct {
	store ObjectStore
	newID func() string
	now   func() time.Time
}

var _ ScanArchive = (*ObjectArchive)(nil)

// NewObjectArchive creates an archive writing to store.
func NewObjectArchive(store ObjectStore) (*ObjectArchive, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}
	return &ObjectArchive{store: store, newID: gen, now: time.Now}, nil
}

// Store writes img and returns its object name.
func (a *ObjectArchive) Store(ctx context.Context, userID string, img Image) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrNoImage
	}
	name := path.Join(userID, a.now().UTC().Format("2006-01-02"), a.newID())
	if err := a.store.Put(ctx, name, img.Data, img.ContentType); err != nil {
		return "", fmt.Errorf("failed to archive scan: %w", err)
	}
	return name, nil
}

// JetStreamObjectStore is an ObjectStore backed by a NATS JetStream bucket.
type JetStreamObjectStore struct {
	conn       *nats.Conn
	js         jetstream.JetStream
	store      jetstream.ObjectStore
	bucketName string
}

var _ ObjectStore = (*JetStreamObjectStore)(nil)

// NewJetStreamObjectStore connects to NATS.
func NewJetStreamObjectStore(natsURL, bucketName string) (*JetStreamObjectStore, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamObjectStore{
		conn:       conn,
		js:         js,
		bucketName: bucketName,
	}, nil
}

// Init opens the bucket, creating it when missing.
func (s *JetStreamObjectStore) Init(ctx context.Context) error {
	store, err := s.js.ObjectStore(ctx, s.bucketName)
	if err == nil {
		s.store = store
		return nil
	}

	store, err = s.js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      s.bucketName,
		Description: "Scanned shopping-list photos",
	})
	if err != nil {
		return fmt.Errorf("failed to create object store bucket: %w", err)
	}

	s.store = store
	return nil
}

// Put stores one object.
func (s *JetStreamObjectStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	if s.store == nil {
		return fmt.Errorf("object store %s not initialized", s.bucketName)
	}
	meta := jetstream.ObjectMeta{
		Name: name,
		Headers: nats.Header{
			"Content-Type": []string{contentType},
		},
	}
	if _, err := s.store.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

// IsConnected reports whether the NATS connection is up.
func (s *JetStreamObjectStore) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close closes the NATS connection.
func (s *JetStreamObjectStore) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
