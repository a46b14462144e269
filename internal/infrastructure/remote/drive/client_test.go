package drive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(server *httptest.Server) *Client {
	return New("test-token", Options{
		BaseURL:       server.URL,
		UploadURL:     server.URL + "/upload",
		RatePerSecond: 1000,
		RateBurst:     1000,
	})
}

func TestListChildFoldersFollowsPagination(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("missing bearer token, got %q", got)
		}
		queries = append(queries, r.URL.Query().Get("q"))

		if r.URL.Query().Get("pageToken") == "" {
			_ = json.NewEncoder(w).Encode(fileList{
				Files:         []fileResource{{ID: "f1", Name: "Альфатрекс"}},
				NextPageToken: "page2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(fileList{
			Files: []fileResource{{ID: "f2", Name: "Бета"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	folders, err := client.ListChildFolders(context.Background(), "root")
	if err != nil {
		t.Fatalf("list folders: %v", err)
	}
	if len(folders) != 2 || folders[0].ID != "f1" || folders[1].Name != "Бета" {
		t.Fatalf("unexpected folders: %+v", folders)
	}
	if len(queries) != 2 || !strings.Contains(queries[0], "'root' in parents") {
		t.Fatalf("unexpected queries: %v", queries)
	}
	if !strings.Contains(queries[0], folderMimeType) {
		t.Fatalf("query must filter on the folder mime type: %q", queries[0])
	}
}

func TestCreateFolderSendsMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["name"] != "Альфатрекс" || payload["mimeType"] != folderMimeType {
			t.Errorf("unexpected payload: %+v", payload)
		}
		_ = json.NewEncoder(w).Encode(fileResource{ID: "new-folder", Name: "Альфатрекс"})
	}))
	defer server.Close()

	client := newTestClient(server)
	id, err := client.CreateFolder(context.Background(), "root", "Альфатрекс")
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if id != "new-folder" {
		t.Fatalf("unexpected folder id: %q", id)
	}
}

func TestUploadFileMultipartBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/upload/") {
			t.Errorf("upload must hit the upload endpoint, got %s", r.URL.Path)
		}
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/related" {
			t.Fatalf("expected multipart/related, got %q (%v)", mediaType, err)
		}

		reader := multipart.NewReader(r.Body, params["boundary"])
		metaPart, err := reader.NextPart()
		if err != nil {
			t.Fatalf("metadata part: %v", err)
		}
		var metadata map[string]any
		if err := json.NewDecoder(metaPart).Decode(&metadata); err != nil {
			t.Fatalf("decode metadata: %v", err)
		}
		if metadata["name"] != "Альфатрекс_акт_1_010125.pdf" {
			t.Errorf("unexpected name: %v", metadata["name"])
		}

		mediaPart, err := reader.NextPart()
		if err != nil {
			t.Fatalf("media part: %v", err)
		}
		data, _ := io.ReadAll(mediaPart)
		if string(data) != "file bytes" {
			t.Errorf("unexpected media: %q", string(data))
		}

		_ = json.NewEncoder(w).Encode(fileResource{
			ID:          "file-1",
			Name:        "Альфатрекс_акт_1_010125.pdf",
			WebViewLink: "https://drive.example/file-1",
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	file, err := client.UploadFile(context.Background(), "folder-1", "Альфатрекс_акт_1_010125.pdf", strings.NewReader("file bytes"))
	if err != nil {
		t.Fatalf("upload file: %v", err)
	}
	if file.ID != "file-1" || file.ViewLink != "https://drive.example/file-1" {
		t.Fatalf("unexpected file: %+v", file)
	}
}

func TestStatusErrorSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "userRateLimitExceeded"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.ListChildFolders(context.Background(), "root")
	if err == nil {
		t.Fatal("expected an error")
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", statusErr.StatusCode)
	}
	if !strings.Contains(statusErr.Body, "userRateLimitExceeded") {
		t.Fatalf("body must be captured, got %q", statusErr.Body)
	}
}
