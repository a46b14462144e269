package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Client talks to the Drive v3 REST API. The rate limiter smooths call
// bursts from concurrent uploads under the per-user API quota.
type Client struct {
	baseURL    string
	uploadURL  string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Options struct {
	BaseURL        string
	UploadURL      string
	RequestTimeout time.Duration
	RatePerSecond  float64
	RateBurst      int
}

func New(token string, options Options) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/drive/v3"
	}
	uploadURL := options.UploadURL
	if uploadURL == "" {
		uploadURL = "https://www.googleapis.com/upload/drive/v3"
	}
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	perSecond := options.RatePerSecond
	if perSecond <= 0 {
		perSecond = 8
	}
	burst := options.RateBurst
	if burst <= 0 {
		burst = 4
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		uploadURL:  strings.TrimRight(uploadURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

type fileResource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType,omitempty"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

type fileList struct {
	Files         []fileResource `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

// ListChildFolders returns all non-trashed child folders of parentID,
// following pagination.
func (c *Client) ListChildFolders(ctx context.Context, parentID string) ([]domain.RemoteFolder, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false",
		escapeQueryValue(parentID), folderMimeType)

	var folders []domain.RemoteFolder
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("q", query)
		params.Set("fields", "nextPageToken, files(id, name)")
		params.Set("pageSize", "1000")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page fileList
		if err := c.getJSON(ctx, "/files?"+params.Encode(), &page, "list_folders"); err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			folders = append(folders, domain.RemoteFolder{ID: f.ID, Name: f.Name})
		}
		if page.NextPageToken == "" {
			return folders, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	payload := map[string]any{
		"name":     name,
		"mimeType": folderMimeType,
		"parents":  []string{parentID},
	}

	var created fileResource
	if err := c.postJSON(ctx, "/files?fields=id,name", payload, &created, "create_folder"); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) UploadFile(ctx context.Context, parentID, name string, data io.Reader) (domain.RemoteFile, error) {
	metadata := map[string]any{
		"name":    name,
		"parents": []string{parentID},
	}

	var uploaded fileResource
	err := c.postMultipart(ctx, "/files?uploadType=multipart&fields=id,name,webViewLink", metadata, data, &uploaded, "upload_file")
	if err != nil {
		return domain.RemoteFile{}, err
	}
	return domain.RemoteFile{
		ID:       uploaded.ID,
		Name:     uploaded.Name,
		ViewLink: uploaded.WebViewLink,
	}, nil
}

// escapeQueryValue guards the Drive query grammar against quotes in ids
// or folder names.
func escapeQueryValue(v string) string {
	return strings.ReplaceAll(v, `'`, `\'`)
}
