package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// azureSource serves assets from one blob container.
type azureSource struct {
	client    *azblob.Client
	container string
}

// NewAzureAssetSource creates a source for container using shared key auth.
func NewAzureAssetSource(accountName, accountKey, container string) (AssetSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &azureSource{client: client, container: container}, nil
}

// Open implements AssetSource.
func (s *azureSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrAssetNotFound, s.container, name)
		}
		return nil, fmt.Errorf("download failed: %w", err)
	}
	return resp.Body, nil
}

func (s *azureSource) String() string {
	return "azure:" + s.container
}
