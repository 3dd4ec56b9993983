// Package mongodb implements MongoDB adapters for the application.
package mongodb

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lead_server/core/port/out"
)

const (
	collectionMessageBodies = "message_bodies"

	// Only compress bodies larger than this.
	compressionThreshold = 1024 // 1KB
)

// BodyAdapter implements out.BodyArchive using MongoDB. Raw bodies live here
// rather than in Postgres so the relational tables stay small.
type BodyAdapter struct {
	collection *mongo.Collection
}

// NewBodyAdapter creates a new MongoDB body archive adapter.
func NewBodyAdapter(db *mongo.Database) *BodyAdapter {
	return &BodyAdapter{collection: db.Collection(collectionMessageBodies)}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *BodyAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "message_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "archived_at", Value: 1}},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// bodyDocument represents the MongoDB document structure.
type bodyDocument struct {
	MessageID    string `bson:"message_id"`
	HTML         []byte `bson:"html"`
	Text         []byte `bson:"text"`
	IsCompressed bool   `bson:"is_compressed"`

	OriginalSize   int64 `bson:"original_size"`
	CompressedSize int64 `bson:"compressed_size"`

	ArchivedAt time.Time `bson:"archived_at"`
}

// Save upserts the raw body for a message.
func (a *BodyAdapter) Save(ctx context.Context, messageID string, html, text string) error {
	doc, err := toDocument(messageID, html, text)
	if err != nil {
		return fmt.Errorf("failed to build body document: %w", err)
	}

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"message_id": messageID}

	if _, err := a.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to save message body: %w", err)
	}
	return nil
}

// Get retrieves the raw body for a message.
func (a *BodyAdapter) Get(ctx context.Context, messageID string) (string, string, error) {
	var doc bodyDocument
	filter := bson.M{"message_id": messageID}

	if err := a.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", "", nil
		}
		return "", "", fmt.Errorf("failed to get message body: %w", err)
	}

	htmlBytes := doc.HTML
	textBytes := doc.Text
	if doc.IsCompressed {
		var err error
		if htmlBytes, err = decompress(doc.HTML); err != nil {
			return "", "", fmt.Errorf("failed to decompress HTML: %w", err)
		}
		if textBytes, err = decompress(doc.Text); err != nil {
			return "", "", fmt.Errorf("failed to decompress text: %w", err)
		}
	}
	return string(htmlBytes), string(textBytes), nil
}

// DeleteOlderThan drops archived bodies older than the given time.
func (a *BodyAdapter) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := a.collection.DeleteMany(ctx, bson.M{
		"archived_at": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete old bodies: %w", err)
	}
	return result.DeletedCount, nil
}

func toDocument(messageID, html, text string) (*bodyDocument, error) {
	htmlBytes := []byte(html)
	textBytes := []byte(text)
	originalSize := int64(len(htmlBytes) + len(textBytes))

	isCompressed := false
	compressedSize := originalSize

	if originalSize > compressionThreshold {
		compressedHTML, err := compress(htmlBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to compress HTML: %w", err)
		}
		compressedText, err := compress(textBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to compress text: %w", err)
		}

		htmlBytes = compressedHTML
		textBytes = compressedText
		isCompressed = true
		compressedSize = int64(len(htmlBytes) + len(textBytes))
	}

	return &bodyDocument{
		MessageID:      messageID,
		HTML:           htmlBytes,
		Text:           textBytes,
		IsCompressed:   isCompressed,
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
		ArchivedAt:     time.Now().UTC(),
	}, nil
}

func compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

var _ out.BodyArchive = (*BodyAdapter)(nil)
