// Package drive wraps the Google Drive v3 API with the narrow surface the
// pipeline needs: listing folder children, downloading and exporting files,
// uploading renders, and checking for the completion marker.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Well-known Drive MIME types the pipeline branches on.
const (
	MIMETypeFolder    = "application/vnd.google-apps.folder"
	MIMETypeGoogleDoc = "application/vnd.google-apps.document"
)

// Entry is an immutable snapshot of a remote file or folder from one listing
// call.
type Entry struct {
	ID       string
	Name     string
	MIMEType string
}

// IsFolder reports whether the entry can contain children.
func (e Entry) IsFolder() bool {
	return e.MIMEType == MIMETypeFolder
}

// API is the remote store surface consumed by the crawler and processor.
// The concrete Client implements it against Google Drive; tests substitute
// fakes.
type API interface {
	ListChildren(ctx context.Context, folderID string) ([]Entry, error)
	ListFolders(ctx context.Context, folderID string) ([]Entry, error)
	FolderName(ctx context.Context, folderID string) (string, error)
	HasChild(ctx context.Context, folderID, name string) (bool, error)
	Download(ctx context.Context, fileID, destPath string) error
	ExportText(ctx context.Context, fileID, destPath string) error
	Upload(ctx context.Context, localPath, folderID, mimeType string) (string, error)
}

// Client implements API against the Drive v3 service.
type Client struct {
	service  *gdrive.Service
	pageSize int64
}

// NewClient constructs a Drive client authenticated via a service account
// credentials file.
func NewClient(ctx context.Context, credentialsFile string, pageSize int64) (*Client, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, errors.New("credentials file required")
	}
	service, err := gdrive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gdrive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{service: service, pageSize: pageSize}, nil
}

// ListChildren returns the direct children of a folder in listing order.
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]Entry, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQueryTerm(folderID))
	return c.list(ctx, query)
}

// ListFolders returns the direct subfolders of a folder.
func (c *Client) ListFolders(ctx context.Context, folderID string) ([]Entry, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false",
		escapeQueryTerm(folderID), MIMETypeFolder)
	return c.list(ctx, query)
}

func (c *Client) list(ctx context.Context, query string) ([]Entry, error) {
	var entries []Entry
	pageToken := ""
	for {
		call := c.service.Files.List().
			Context(ctx).
			Q(query).
			PageSize(c.pageSize).
			Fields("nextPageToken, files(id, name, mimeType)")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		for _, f := range page.Files {
			entries = append(entries, Entry{ID: f.Id, Name: f.Name, MIMEType: f.MimeType})
		}
		if page.NextPageToken == "" {
			return entries, nil
		}
		pageToken = page.NextPageToken
	}
}

// FolderName returns a folder's display name.
func (c *Client) FolderName(ctx context.Context, folderID string) (string, error) {
	file, err := c.service.Files.Get(folderID).Context(ctx).Fields("name").Do()
	if err != nil {
		return "", fmt.Errorf("get folder %s: %w", folderID, err)
	}
	return file.Name, nil
}

// ParentFolder returns the ID of a file's first parent, or "" when the file
// has none visible to the credentials in use.
func (c *Client) ParentFolder(ctx context.Context, fileID string) (string, error) {
	file, err := c.service.Files.Get(fileID).Context(ctx).Fields("parents").Do()
	if err != nil {
		return "", fmt.Errorf("get parents of %s: %w", fileID, err)
	}
	if len(file.Parents) == 0 {
		return "", nil
	}
	return file.Parents[0], nil
}

// HasChild reports whether the folder directly contains a non-trashed entry
// with the given name. Marker existence, not count, is what matters: a
// retried upload may leave duplicates behind.
func (c *Client) HasChild(ctx context.Context, folderID, name string) (bool, error) {
	query := fmt.Sprintf("'%s' in parents and name = '%s' and trashed = false",
		escapeQueryTerm(folderID), escapeQueryTerm(name))
	call := c.service.Files.List().
		Context(ctx).
		Q(query).
		PageSize(1).
		Fields("files(id)")
	page, err := call.Do()
	if err != nil {
		return false, fmt.Errorf("check for %s: %w", name, err)
	}
	return len(page.Files) > 0, nil
}

// Download streams a binary file's content to destPath.
func (c *Client) Download(ctx context.Context, fileID, destPath string) error {
	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("download %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	return writeBody(resp.Body, destPath)
}

// ExportText exports a Google Workspace document as plain text to destPath.
func (c *Client) ExportText(ctx context.Context, fileID, destPath string) error {
	resp, err := c.service.Files.Export(fileID, "text/plain").Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("export %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	return writeBody(resp.Body, destPath)
}

// Upload creates a new file in the given folder from localPath and returns
// the new entry's ID. Each call creates a distinct remote object; the call is
// not idempotent.
func (c *Client) Upload(ctx context.Context, localPath, folderID, mimeType string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload source: %w", err)
	}
	defer file.Close()

	meta := &gdrive.File{
		Name:    filepath.Base(localPath),
		Parents: []string{folderID},
	}
	created, err := c.service.Files.Create(meta).
		Context(ctx).
		Media(file, googleapi.ContentType(mimeType)).
		Fields("id").
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(localPath), err)
	}
	return created.Id, nil
}

func writeBody(body io.Reader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(destPath), err)
	}
	defer out.Close()
	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(destPath), err)
	}
	return out.Close()
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeQueryTerm(value string) string {
	return queryEscaper.Replace(value)
}
