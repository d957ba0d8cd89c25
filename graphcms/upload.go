package graphcms

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/machinebox/graphql"
)

// Uploader moves a binary through the backend's asset pipeline:
// reserve an asset record, transfer the bytes to the signed destination,
// then activate (publish) the stored asset.
type Uploader struct {
	client *Client
}

// NewUploader returns an Uploader sharing the client's endpoints and
// credentials.
func NewUploader(c *Client) *Uploader {
	return &Uploader{client: c}
}

// UploadResult reports a completed upload. Activated false with a non-nil
// ActivationErr is degraded success: the bytes are durably stored and the
// asset is referenceable, but it will not render for anonymous readers
// until ActivateAsset succeeds.
type UploadResult struct {
	ID            string
	URL           string
	Activated     bool
	ActivationErr error
}

const createAssetMutation = `
mutation CreateAsset($fileName: String) {
  createAsset(data: { fileName: $fileName }) {
    id
    url
    upload {
      expiresAt
      error {
        code
        message
      }
      requestPostData {
        url
        date
        key
        signature
        algorithm
        policy
        credential
        securityToken
      }
    }
  }
}`

// publishAssetMutation is the primary activation shape. If the backend
// rejects it, publishAssetMinimalMutation is the one documented alternate;
// there is no open-ended fallback loop.
const publishAssetMutation = `
mutation PublishAsset($id: ID!) {
  publishAsset(where: { id: $id }, to: PUBLISHED) {
    id
    stage
  }
}`

const publishAssetMinimalMutation = `
mutation PublishAssetMinimal($id: ID!) {
  publishAsset(where: { id: $id }) {
    id
  }
}`

// requestPostData is the one-time signed upload descriptor. Field order
// matters to the signing contract and is preserved by formFields.
type requestPostData struct {
	URL           string `json:"url"`
	Date          string `json:"date"`
	Key           string `json:"key"`
	Signature     string `json:"signature"`
	Algorithm     string `json:"algorithm"`
	Policy        string `json:"policy"`
	Credential    string `json:"credential"`
	SecurityToken string `json:"securityToken"`
}

// formFields returns the signed fields in submission order. The binary
// payload is appended after these, always last.
func (d requestPostData) formFields() [][2]string {
	fields := [][2]string{
		{"X-Amz-Date", d.Date},
		{"key", d.Key},
		{"X-Amz-Signature", d.Signature},
		{"X-Amz-Algorithm", d.Algorithm},
		{"policy", d.Policy},
		{"X-Amz-Credential", d.Credential},
	}
	if d.SecurityToken != "" {
		fields = append(fields, [2]string{"X-Amz-Security-Token", d.SecurityToken})
	}
	return fields
}

type createAssetResponse struct {
	CreateAsset *struct {
		ID     string `json:"id"`
		URL    string `json:"url"`
		Upload *struct {
			ExpiresAt string `json:"expiresAt"`
			Error     *struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
			RequestPostData *requestPostData `json:"requestPostData"`
		} `json:"upload"`
	} `json:"createAsset"`
}

// Upload runs the full pipeline for one file. Re-invoking with identical
// bytes mints a new asset; there is no content addressing.
func (u *Uploader) Upload(ctx context.Context, data []byte, fileName string) (UploadResult, error) {
	if len(data) == 0 {
		return UploadResult{}, &ValidationError{Field: "file", Reason: "no file provided"}
	}

	asset, postData, err := u.reserve(ctx, fileName)
	if err != nil {
		return UploadResult{}, err
	}
	u.client.log.Info("asset reserved", "id", asset.ID, "file", fileName)

	if err := u.transfer(ctx, postData, data, fileName); err != nil {
		return UploadResult{}, err
	}
	u.client.log.Info("asset stored", "id", asset.ID, "bytes", len(data))

	result := UploadResult{ID: asset.ID, URL: asset.URL, Activated: true}
	if err := u.ActivateAsset(ctx, asset.ID); err != nil {
		// Degraded success: the bytes are stored, activation is retryable.
		result.Activated = false
		result.ActivationErr = err
		u.client.log.Warn("asset stored but not activated", "id", asset.ID, "error", err)
	}
	return result, nil
}

func (u *Uploader) reserve(ctx context.Context, fileName string) (AssetRef, requestPostData, error) {
	req := graphql.NewRequest(createAssetMutation)
	req.Var("fileName", fileName)

	var resp createAssetResponse
	if err := u.client.runManagement(ctx, req, &resp); err != nil {
		return AssetRef{}, requestPostData{}, &ReservationError{Err: err}
	}
	created := resp.CreateAsset
	if created == nil || created.Upload == nil || created.Upload.RequestPostData == nil {
		return AssetRef{}, requestPostData{}, &ReservationError{Err: fmt.Errorf("no upload descriptor in response")}
	}
	if ue := created.Upload.Error; ue != nil {
		return AssetRef{}, requestPostData{}, &ReservationError{Err: fmt.Errorf("%s: %s", ue.Code, ue.Message)}
	}
	return AssetRef{ID: created.ID, URL: created.URL}, *created.Upload.RequestPostData, nil
}

// transfer submits the bytes and signed fields as one multipart request.
// The descriptor is single-use and time-limited, so there is no retry: a
// rejection orphans the reserved asset.
func (u *Uploader) transfer(ctx context.Context, postData requestPostData, data []byte, fileName string) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for _, field := range postData.formFields() {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return &TransferError{Body: err.Error()}
		}
	}
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return &TransferError{Body: err.Error()}
	}
	if _, err := part.Write(data); err != nil {
		return &TransferError{Body: err.Error()}
	}
	if err := form.Close(); err != nil {
		return &TransferError{Body: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postData.URL, &body)
	if err != nil {
		return &TransferError{Body: err.Error()}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.http.Do(req)
	if err != nil {
		return &TransferError{Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransferError{Status: resp.StatusCode, Body: string(snippet)}
	}
	return nil
}

// ActivateAsset publishes a stored asset. Publishing an already-published
// asset is a no-op on the backend, so retries are safe. On rejection of
// the primary mutation shape, the minimal alternate shape is tried once.
func (u *Uploader) ActivateAsset(ctx context.Context, assetID string) error {
	if err := u.publishAsset(ctx, publishAssetMutation, assetID); err == nil {
		return nil
	}
	if err := u.publishAsset(ctx, publishAssetMinimalMutation, assetID); err != nil {
		return &ActivationError{AssetID: assetID, Err: err}
	}
	return nil
}

func (u *Uploader) publishAsset(ctx context.Context, mutation, assetID string) error {
	req := graphql.NewRequest(mutation)
	req.Var("id", assetID)
	var resp struct {
		PublishAsset *struct {
			ID    string `json:"id"`
			Stage string `json:"stage"`
		} `json:"publishAsset"`
	}
	if err := u.client.runManagement(ctx, req, &resp); err != nil {
		return err
	}
	if resp.PublishAsset == nil {
		return fmt.Errorf("publishAsset returned no asset")
	}
	return nil
}
