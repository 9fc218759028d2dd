// Package archive uploads rendered yearly reports to Azure Blob Storage.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cardfill/internal/core"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

const (
	// Standard Azurite account name and key
	azuriteAccountName = "devstoreaccount1"
	azuriteAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

// BlobClient is the subset of *azblob.Client the archiver uses.
type BlobClient interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

type Archiver struct {
	client    BlobClient
	container string
	now       func() time.Time
}

// NewBlobClient connects to serviceURL. Plain http endpoints are treated as
// Azurite and use its well-known shared key; anything else authenticates
// with DefaultAzureCredential.
func NewBlobClient(serviceURL string) (*azblob.Client, error) {
	if serviceURL == "" {
		return nil, fmt.Errorf("blob service URL is required")
	}
	if isLocal(serviceURL) {
		slog.Info("Using Azurite shared key credentials", "component", "archive")
		cred, err := azblob.NewSharedKeyCredential(azuriteAccountName, azuriteAccountKey)
		if err != nil {
			return nil, fmt.Errorf("create shared key credential: %w", err)
		}
		client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create blob client with shared key: %w", err)
		}
		return client, nil
	}

	cred, err := newDefaultAzureCredential()
	if err != nil {
		return nil, fmt.Errorf("create default azure credential: %w", err)
	}
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return client, nil
}

func isLocal(serviceURL string) bool {
	return strings.HasPrefix(serviceURL, "http://")
}

func newDefaultAzureCredential() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

func New(client BlobClient, container string) *Archiver {
	return &Archiver{client: client, container: container, now: time.Now}
}

// ArchiveYearly stores the summary as JSON under
// "scope-<id>/<year>.json" and returns the blob name.
func (a *Archiver) ArchiveYearly(ctx context.Context, scope core.FillScope, year int, s core.SummaryOverPeriod) (string, error) {
	body, err := json.MarshalIndent(NewDocument(scope, year, s, a.now()), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	_, err = a.client.CreateContainer(ctx, a.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		slog.WarnContext(ctx, "Failed to create container",
			"component", "archive", "container", a.container, "error", err)
	}

	name := fmt.Sprintf("scope-%d/%d.json", scope.ID, year)
	contentType := "application/json"
	_, err = a.client.UploadBuffer(ctx, a.container, name, body, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("upload blob %s/%s: %w", a.container, name, err)
	}

	slog.InfoContext(ctx, "Report archived",
		"component", "archive", "container", a.container, "blob_name", name, "size_bytes", len(body))
	return name, nil
}
