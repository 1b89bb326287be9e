package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	nethttp "net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/config"
)

// azureUploadID is the synthetic upload ID for Azure sessions. Block blobs
// have no server-side session object: the uncommitted block set of a blob
// is the session, so there is exactly one per key and no real ID.
const azureUploadID = "uncommitted-blocks"

// readSeekCloser adapts bytes.Reader to the io.ReadSeekCloser StageBlock
// requires.
type readSeekCloser struct {
	*bytes.Reader
}

func (readSeekCloser) Close() error { return nil }

// AzureStore implements ObjectStore on Azure block blobs. A "session" is
// the set of uncommitted blocks staged against a blob; block IDs encode the
// part number so a resumed run can map them back.
type AzureStore struct {
	client *azblob.Client
	tier   *blob.AccessTier
}

// NewAzureStore builds the Azure backend from a connection string or an
// account name and key. The storage class maps to the access tier applied
// when the block list is committed.
func NewAzureStore(cfg *config.AzureConfig, storageClass string, httpClient *nethttp.Client) (*AzureStore, error) {
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: httpClient,
		},
	}

	var client *azblob.Client
	var err error
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
	case cfg.AccountName != "" && cfg.AccountKey != "":
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err == nil {
			serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
			client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, opts)
		}
	default:
		return nil, fmt.Errorf("azure provider requires a connection_string or account_name and account_key")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &AzureStore{
		client: client,
		tier:   accessTierFor(storageClass),
	}, nil
}

func (a *AzureStore) blockBlobClient(bucket, key string) *blockblob.Client {
	return a.client.ServiceClient().NewContainerClient(bucket).NewBlockBlobClient(key)
}

// ListSessions reports a synthetic session when the blob has uncommitted
// blocks staged against it.
func (a *AzureStore) ListSessions(ctx context.Context, bucket, key string) ([]Session, error) {
	resp, err := a.blockBlobClient(bucket, key).GetBlockList(ctx, blockblob.BlockListTypeUncommitted, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get block list: %w", err)
	}
	if len(resp.UncommittedBlocks) == 0 {
		return nil, nil
	}
	return []Session{{Bucket: bucket, Key: key, UploadID: azureUploadID}}, nil
}

// CreateSession returns the synthetic session for the key. No server call
// is needed: staging the first block creates the uncommitted state.
func (a *AzureStore) CreateSession(ctx context.Context, bucket, key, storageClass string) (Session, error) {
	return Session{Bucket: bucket, Key: key, UploadID: azureUploadID}, nil
}

// ListParts decodes the uncommitted block IDs back to part numbers.
func (a *AzureStore) ListParts(ctx context.Context, sess Session) ([]PartInfo, error) {
	resp, err := a.blockBlobClient(sess.Bucket, sess.Key).GetBlockList(ctx, blockblob.BlockListTypeUncommitted, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get block list: %w", err)
	}

	var parts []PartInfo
	for _, b := range resp.UncommittedBlocks {
		if b.Name == nil {
			continue
		}
		number, err := parseBlockID(*b.Name)
		if err != nil {
			// Foreign block staged by some other tool; it is not one of
			// ours and cannot be completed, so skip it.
			continue
		}
		size := int64(-1)
		if b.Size != nil {
			size = *b.Size
		}
		parts = append(parts, PartInfo{Number: number, Tag: *b.Name, Size: size})
	}
	return parts, nil
}

// UploadPart stages one block. The block ID doubles as the content tag.
func (a *AzureStore) UploadPart(ctx context.Context, sess Session, number int32, data []byte) (string, error) {
	id := blockID(number)
	body := readSeekCloser{bytes.NewReader(data)}
	_, err := a.blockBlobClient(sess.Bucket, sess.Key).StageBlock(ctx, id, body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to stage block %d: %w", number, err)
	}
	return id, nil
}

// CompleteSession commits the block list in part order with the configured
// access tier.
func (a *AzureStore) CompleteSession(ctx context.Context, sess Session, parts []CompletedPart) error {
	sorted := make([]CompletedPart, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	ids := make([]string, len(sorted))
	for i, p := range sorted {
		ids[i] = p.Tag
	}

	_, err := a.blockBlobClient(sess.Bucket, sess.Key).CommitBlockList(ctx, ids, &blockblob.CommitBlockListOptions{
		Tier: a.tier,
	})
	if err != nil {
		return fmt.Errorf("failed to commit block list: %w", err)
	}
	return nil
}

// AbortSession is a no-op: Azure has no call to discard uncommitted blocks;
// the service expires them seven days after the last stage.
func (a *AzureStore) AbortSession(ctx context.Context, sess Session) error {
	return nil
}

// HeadObject returns the committed blob's properties.
func (a *AzureStore) HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	blobClient := a.client.ServiceClient().NewContainerClient(bucket).NewBlobClient(key)
	resp, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("failed to get blob properties: %w", err)
	}

	info := ObjectInfo{Key: key, Size: -1}
	if resp.ContentLength != nil {
		info.Size = *resp.ContentLength
	}
	if resp.ETag != nil {
		info.Tag = strings.Trim(string(*resp.ETag), `"`)
	}
	if resp.AccessTier != nil {
		info.StorageClass = *resp.AccessTier
	}
	return info, nil
}

// ListAllSessions scans the container for blobs with uncommitted blocks.
func (a *AzureStore) ListAllSessions(ctx context.Context, bucket string) ([]Session, error) {
	containerClient := a.client.ServiceClient().NewContainerClient(bucket)
	pager := containerClient.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Include: container.ListBlobsInclude{UncommittedBlobs: true},
	})

	var sessions []Session
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			found, err := a.ListSessions(ctx, bucket, *item.Name)
			if err != nil {
				return nil, err
			}
			sessions = append(sessions, found...)
		}
	}
	return sessions, nil
}

// blockID encodes a part number as the fixed-width base64 block ID Azure
// requires. All IDs of one blob must decode to the same byte length.
func blockID(number int32) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("part-%010d", number)))
}

func parseBlockID(id string) (int32, error) {
	raw, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return 0, fmt.Errorf("block id %q is not base64: %w", id, err)
	}
	s, ok := strings.CutPrefix(string(raw), "part-")
	if !ok {
		return 0, fmt.Errorf("block id %q has foreign format", string(raw))
	}
	number, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("block id %q has no part number: %w", string(raw), err)
	}
	return int32(number), nil
}

// accessTierFor maps an S3-style storage class name to the Azure access
// tier applied at commit time. Azure tier names are accepted directly.
func accessTierFor(storageClass string) *blob.AccessTier {
	var tier blob.AccessTier
	switch strings.ToUpper(storageClass) {
	case "":
		return nil
	case "DEEP_ARCHIVE", "GLACIER", "GLACIER_IR", "ARCHIVE":
		tier = blob.AccessTierArchive
	case "STANDARD_IA", "ONEZONE_IA", "COOL":
		tier = blob.AccessTierCool
	case "COLD":
		tier = blob.AccessTierCold
	case "STANDARD", "HOT":
		tier = blob.AccessTierHot
	default:
		tier = blob.AccessTierArchive
	}
	return &tier
}
