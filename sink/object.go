// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var errUploadAborted = errors.New("upload aborted")

// ObjectPutter is the subset of *minio.Client used by ObjectSink
type ObjectPutter interface {
	PutObject(
		ctx context.Context,
		bucketName, objectName string,
		reader io.Reader,
		objectSize int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
}

// ObjectConfig holds the connection settings for an S3-compatible store
type ObjectConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Prefix is prepended to every object key
	Prefix string
}

// NewObjectClient creates a MinIO client for the configured endpoint
func NewObjectClient(cfg ObjectConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("object store endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("object store bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

// ObjectSink uploads each payload as an object named <prefix><item-id>. The
// upload streams through a pipe while the payload is written; aborting it
// fails the upload so no object is created.
type ObjectSink struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewObjectSink(client ObjectPutter, bucket, prefix string) *ObjectSink {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ObjectSink{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Key returns the object key for an item payload
func (s *ObjectSink) Key(item Item) string {
	return s.prefix + item.ID.String()
}

func (s *ObjectSink) Open(ctx context.Context, item Item) (Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := s.Key(item)
	size := int64(-1)
	opts := minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		UserMetadata: map[string]string{
			"Bundled-In": item.BundledIn,
		},
	}
	if item.Header != nil {
		size = item.Header.PayloadLength
		if contentType := item.Header.ContentType(); contentType != "" {
			opts.ContentType = contentType
		}
		opts.UserMetadata["Owner"] = item.Header.OwnerAddress()
		opts.UserMetadata["Signature-Type"] = item.Header.SignatureType.String()
	}
	uploadCtx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	w := &objectWriter{
		pipeW:    pw,
		result:   make(chan error, 1),
		cancel:   cancel,
		location: "s3://" + s.bucket + "/" + key,
	}
	w.digestWriter = newDigestWriter(pw)
	go func() {
		_, err := s.client.PutObject(uploadCtx, s.bucket, key, pr, size, opts)
		// Unblock the writer if the upload gave up early
		_ = pr.CloseWithError(err)
		w.result <- err
		close(w.result)
	}()
	return w, nil
}

type objectWriter struct {
	*digestWriter
	pipeW    *io.PipeWriter
	result   chan error
	cancel   context.CancelFunc
	location string
	closed   bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	return w.digestWriter.Write(p)
}

func (w *objectWriter) Commit() (Output, error) {
	if w.closed {
		return Output{}, ErrWriterClosed
	}
	w.closed = true
	defer w.cancel()
	_ = w.pipeW.Close()
	if err := <-w.result; err != nil {
		return Output{}, fmt.Errorf("upload %s: %w", w.location, err)
	}
	return w.output(w.location), nil
}

func (w *objectWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.pipeW.CloseWithError(errUploadAborted)
	w.cancel()
	<-w.result
	return nil
}
