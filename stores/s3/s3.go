// Package s3 provides an object-store backed Source. Every id maps to one
// object under a common prefix; an absent object is simply not found.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cachefall/cachefall"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Source[K comparable, V any] struct {
	client *minio.Client

	bucket string
	prefix string

	valSerde cachefall.SerDe[V]
}

var _ cachefall.Source[string, string] = (*Source[string, string])(nil)

// New connects to an S3 compatible endpoint. The bucket must already exist
// or be creatable with the given credentials.
func New[K comparable, V any](endpoint, accessKey, secretKey, bucket, prefix string, secure bool, valSerde cachefall.SerDe[V]) (*Source[K, V], error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	ctx := context.Background()
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errBucketExists := client.BucketExists(ctx, bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("s3 bucket %q: %w", bucket, err)
		}
	}

	return &Source[K, V]{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		valSerde: valSerde,
	}, nil
}

func (s *Source[K, V]) Read(ctx context.Context, query *cachefall.Query[K, V]) (map[K]V, error) {
	values := map[K]V{}

	for _, id := range query.IDs() {
		if err := ctx.Err(); err != nil {
			return values, err
		}

		v, err := s.get(ctx, id)
		if err != nil {
			if errors.Is(err, cachefall.ErrNotFound) {
				continue
			}
			return values, err
		}
		values[id] = v
	}

	return values, nil
}

func (s *Source[K, V]) get(ctx context.Context, id K) (V, error) {
	var zero V

	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(id), minio.GetObjectOptions{})
	if err != nil {
		return zero, fmt.Errorf("s3 get: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return zero, cachefall.ErrNotFound
		}
		return zero, fmt.Errorf("s3 read: %w", err)
	}

	return s.valSerde.Deserializer(data)
}

func (s *Source[K, V]) objectName(id K) string {
	return fmt.Sprintf("%s/%v", s.prefix, id)
}
