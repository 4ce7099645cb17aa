package blobstore

import (
	"bytes"
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

// GridFSStore keeps blobs in a MongoDB GridFS bucket.
type GridFSStore struct {
	db         *mongo.Database
	bucketName string
	baseURL    string
}

func NewGridFSStore(db *mongo.Database, bucketName, baseURL string) (*GridFSStore, error) {
	s := &GridFSStore{db: db, bucketName: bucketName, baseURL: baseURL}
	if _, err := s.open(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// open returns a bucket carrying ctx's deadline. Buckets are cheap and hold
// per-instance deadlines, so each operation gets its own.
func (s *GridFSStore) open(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket %q: %w", s.bucketName, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return bucket, nil
}

type fileMetadata struct {
	ContentType string `bson:"contentType"`
}

func (s *GridFSStore) Upload(ctx context.Context, fileName, contentType string, content io.Reader) (*Object, error) {
	if err := checkUpload(fileName, contentType); err != nil {
		return nil, err
	}
	data, err := readLimited(content)
	if err != nil {
		return nil, err
	}
	bucket, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.GridFSUpload().SetMetadata(fileMetadata{ContentType: contentType})
	oid, err := bucket.UploadFromStream(fileName, bytes.NewReader(data), opts)
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", fileName, err)
	}

	id := oid.Hex()
	return &Object{
		ID:          id,
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
		URL:         s.baseURL + "/" + id,
		CreatedAt:   oid.Timestamp().UTC(),
	}, nil
}

func (s *GridFSStore) Open(ctx context.Context, id string) (io.ReadCloser, *Object, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil, ErrBlobNotFound
	}
	bucket, err := s.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	stream, err := bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, err
	}

	file := stream.GetFile()
	var meta fileMetadata
	if file.Metadata != nil {
		_ = bson.Unmarshal(file.Metadata, &meta)
	}
	return stream, &Object{
		ID:          id,
		FileName:    file.Name,
		ContentType: meta.ContentType,
		Size:        file.Length,
		URL:         s.baseURL + "/" + id,
		CreatedAt:   file.UploadDate,
	}, nil
}

func (s *GridFSStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrBlobNotFound
	}
	bucket, err := s.open(ctx)
	if err != nil {
		return err
	}
	if err := bucket.Delete(oid); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrBlobNotFound
		}
		return err
	}
	return nil
}
