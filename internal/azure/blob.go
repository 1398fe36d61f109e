package azure

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/boswellbenjamin/migrainauts/internal/repository"
	"go.uber.org/zap"
)

// BlobKeyValueStore keeps each key as one block blob. An upload replaces
// the blob as a whole, which gives the overwrite semantics the stores rely on.
type BlobKeyValueStore struct {
	client        *azblob.Client
	containerName string
	prefix        string
	logger        *zap.Logger
}

// NewBlobKeyValueStore creates a store authenticated with a shared key
func NewBlobKeyValueStore(accountName, accountKey, containerName string, logger *zap.Logger) (*BlobKeyValueStore, error) {
	if accountName == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("accountName, accountKey, and containerName are required")
	}

	// Create service URL
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	// Create shared key credential
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return newBlobKeyValueStore(client, containerName, logger), nil
}

// NewBlobKeyValueStoreFromConnectionString creates a store from a storage connection string
func NewBlobKeyValueStoreFromConnectionString(connectionString, containerName string, logger *zap.Logger) (*BlobKeyValueStore, error) {
	if connectionString == "" || containerName == "" {
		return nil, fmt.Errorf("connectionString and containerName are required")
	}

	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return newBlobKeyValueStore(client, containerName, logger), nil
}

func newBlobKeyValueStore(client *azblob.Client, containerName string, logger *zap.Logger) *BlobKeyValueStore {
	return &BlobKeyValueStore{
		client:        client,
		containerName: containerName,
		prefix:        "state/",
		logger:        logger,
	}
}

// EnsureContainer creates the container if it does not exist yet
func (s *BlobKeyValueStore) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.containerName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		s.logger.Error("failed to create container",
			zap.String("container", s.containerName),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create container %s: %w", s.containerName, err)
	}
	return nil
}

// Get downloads the blob stored under key
func (s *BlobKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	blobName := s.blobName(key)

	resp, err := s.client.DownloadStream(ctx, s.containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("key %s: %w", key, repository.ErrNotFound)
		}
		s.logger.Error("failed to download blob",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download blob %s: %w", blobName, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Error("failed to read blob data",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to read blob %s: %w", blobName, err)
	}

	return data, nil
}

// Put uploads value under key, replacing the previous blob
func (s *BlobKeyValueStore) Put(ctx context.Context, key string, value []byte) error {
	blobName := s.blobName(key)

	_, err := s.client.UploadBuffer(ctx, s.containerName, blobName, value, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": toPtr("application/octet-stream"),
		},
	})
	if err != nil {
		s.logger.Error("failed to upload blob",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(value)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to upload blob %s: %w", blobName, err)
	}

	s.logger.Debug("blob uploaded",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(value)),
	)
	return nil
}

// Delete removes the blob stored under key; a missing blob is not an error
func (s *BlobKeyValueStore) Delete(ctx context.Context, key string) error {
	blobName := s.blobName(key)

	_, err := s.client.DeleteBlob(ctx, s.containerName, blobName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		s.logger.Error("failed to delete blob",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return fmt.Errorf("failed to delete blob %s: %w", blobName, err)
	}
	return nil
}

func (s *BlobKeyValueStore) blobName(key string) string {
	return s.prefix + strings.TrimPrefix(key, "/") + ".bin"
}

// toPtr is a helper function to convert a value to a pointer
func toPtr(s string) *string {
	return &s
}

var _ repository.KeyValueStore = (*BlobKeyValueStore)(nil)
