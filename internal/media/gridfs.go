package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps objects in a MongoDB GridFS bucket named "media". The
// bucket is shared between requests, so its read/write deadlines stay unset
// and transfers are bounded by the client-wide timeout.
type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("media"))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &GridFSStore{bucket: bucket}, nil
}

func (s *GridFSStore) Save(_ context.Context, name string, r io.Reader) error {
	cleaned, err := cleanName(name)
	if err != nil {
		return err
	}
	_, err = s.bucket.UploadFromStream(cleaned, r)
	return err
}

func (s *GridFSStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	stream, err := s.bucket.OpenDownloadStreamByName(cleaned)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (s *GridFSStore) Delete(ctx context.Context, name string) error {
	cleaned, err := cleanName(name)
	if err != nil {
		return err
	}
	cursor, err := s.bucket.FindContext(ctx, bson.M{"filename": cleaned})
	if err != nil {
		return err
	}
	var files []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &files); err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNotFound
	}
	for _, f := range files {
		if err := s.bucket.DeleteContext(ctx, f.ID); err != nil {
			return err
		}
	}
	return nil
}
