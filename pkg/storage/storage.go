// Package storage provides blob storage with an Azure Blob Storage
// implementation. Objects carry string metadata that List returns without
// downloading content.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/caduceus/pkg/lifecycle"
)

// Object describes a stored blob.
type Object struct {
	Key          string
	Metadata     map[string]string
	LastModified time.Time
}

// UploadOptions carries the content type and metadata written with a blob.
type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
}

// System manages blob storage operations and lifecycle coordination.
type System interface {
	lifecycle.ReadinessChecker
	// Start registers a startup hook that initializes the storage container.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams data to key, replacing any existing blob and its metadata.
	Upload(ctx context.Context, key string, reader io.Reader, opts UploadOptions) error
	// Download returns a stream for the blob at key. The caller must close it.
	// Returns ErrNotFound if the blob does not exist.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob at key. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, key string) error
	// List returns every blob whose key starts with prefix, with metadata.
	List(ctx context.Context, prefix string) ([]Object, error)
}

type azure struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
	ready     atomic.Bool
}

// New creates a storage system from the given configuration.
// It validates the connection string and creates the Azure client
// but does not contact the service until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry:     policy.RetryOptions{MaxRetries: int32(cfg.MaxRetries)},
			Telemetry: policy.TelemetryOptions{ApplicationID: "caduceus"},
		},
	}

	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:    client,
		container: cfg.ContainerName,
		logger:    logger.With("system", "storage", "container", cfg.ContainerName),
	}, nil
}

func (a *azure) Ready() bool {
	return a.ready.Load()
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		_, err := a.client.CreateContainer(lc.Context(), a.container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			a.logger.Error("storage container initialization failed", "error", err)
			return
		}

		a.ready.Store(true)
		a.logger.Info("storage container ready")
	})

	return nil
}

func (a *azure) Upload(ctx context.Context, key string, reader io.Reader, opts UploadOptions) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	upload := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &opts.ContentType},
	}
	if len(opts.Metadata) > 0 {
		upload.Metadata = make(map[string]*string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			upload.Metadata[k] = &v
		}
	}

	if _, err := a.client.UploadStream(ctx, a.container, key, reader, upload); err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}
	return nil
}

func (a *azure) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		return nil, notFound(err, "download blob %s", key)
	}
	return resp.Body, nil
}

func (a *azure) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if _, err := a.client.DeleteBlob(ctx, a.container, key, nil); err != nil {
		return notFound(err, "delete blob %s", key)
	}
	return nil
}

func (a *azure) List(ctx context.Context, prefix string) ([]Object, error) {
	pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{
		Prefix:  &prefix,
		Include: azblob.ListBlobsInclude{Metadata: true},
	})

	var objects []Object
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs %s: %w", prefix, err)
		}

		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			obj := Object{Key: *item.Name, Metadata: make(map[string]string, len(item.Metadata))}
			for k, v := range item.Metadata {
				if v != nil {
					obj.Metadata[strings.ToLower(k)] = *v
				}
			}
			if item.Properties != nil && item.Properties.LastModified != nil {
				obj.LastModified = *item.Properties.LastModified
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func notFound(err error, format string, args ...any) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// ValidateKey rejects empty keys and keys containing a path traversal segment.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
