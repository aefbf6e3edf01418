package seedr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// GetSettings returns the user's settings and account information.
func (c *Client) GetSettings(ctx context.Context) (*UserSettings, error) {
	return apiCall[UserSettings](ctx, c, http.MethodGet, "get_settings", nil, nil)
}

// GetMemoryBandwidth returns the account's storage and bandwidth usage.
func (c *Client) GetMemoryBandwidth(ctx context.Context) (*MemoryBandwidth, error) {
	return apiCall[MemoryBandwidth](ctx, c, http.MethodGet, "get_memory_bandwidth", nil, nil)
}

// ListContents lists the contents of a folder. folderID "" or "0" is the
// root folder.
func (c *Client) ListContents(ctx context.Context, folderID string) (*ListContentsResult, error) {
	if folderID == "" {
		folderID = "0"
	}

	form := map[string]string{
		"content_type": "folder",
		"content_id":   folderID,
	}
	return apiCall[ListContentsResult](ctx, c, http.MethodPost, "list_contents", form, nil)
}

// AddTorrentOptions selects what to add. Exactly one of MagnetLink,
// TorrentFile or WishlistID should be set. TorrentFile accepts a local path
// or an http(s) URL to a .torrent file.
type AddTorrentOptions struct {
	MagnetLink  string
	TorrentFile string
	WishlistID  string
	FolderID    string // destination folder, default "-1" (root)
}

// AddTorrent adds a torrent to the account for downloading.
func (c *Client) AddTorrent(ctx context.Context, opts AddTorrentOptions) (*AddTorrentResult, error) {
	folderID := opts.FolderID
	if folderID == "" {
		folderID = "-1"
	}

	form := map[string]string{
		"folder_id": folderID,
	}
	if opts.MagnetLink != "" {
		form["torrent_magnet"] = opts.MagnetLink
	}
	if opts.WishlistID != "" {
		form["wishlist_id"] = opts.WishlistID
	}

	var attachment []byte
	if opts.TorrentFile != "" {
		var err error
		attachment, err = c.readTorrentFile(ctx, opts.TorrentFile)
		if err != nil {
			return nil, err
		}
	}

	return apiCall[AddTorrentResult](ctx, c, http.MethodPost, "add_torrent", form, attachment)
}

// ScanPage scans a page for torrents and magnet links.
func (c *Client) ScanPage(ctx context.Context, pageURL string) (*ScanPageResult, error) {
	form := map[string]string{"url": pageURL}
	return apiCall[ScanPageResult](ctx, c, http.MethodPost, "scan_page", form, nil)
}

// FetchFile creates a download link for a file.
func (c *Client) FetchFile(ctx context.Context, fileID string) (*FetchFileResult, error) {
	form := map[string]string{"folder_file_id": fileID}
	return apiCall[FetchFileResult](ctx, c, http.MethodPost, "fetch_file", form, nil)
}

// CreateArchive creates an archive link for a folder.
func (c *Client) CreateArchive(ctx context.Context, folderID string) (*CreateArchiveResult, error) {
	// the service expects a JSON array literal embedded as a form field
	form := map[string]string{
		"archive_arr": fmt.Sprintf(`[{"type":"folder","id":%s}]`, folderID),
	}
	return apiCall[CreateArchiveResult](ctx, c, http.MethodPost, "create_empty_archive", form, nil)
}

// SearchFiles searches the account's files.
func (c *Client) SearchFiles(ctx context.Context, query string) (*Folder, error) {
	form := map[string]string{"search_query": query}
	return apiCall[Folder](ctx, c, http.MethodPost, "search_files", form, nil)
}

// AddFolder creates a folder.
func (c *Client) AddFolder(ctx context.Context, name string) (*APIResult, error) {
	form := map[string]string{"name": name}
	return apiCall[APIResult](ctx, c, http.MethodPost, "add_folder", form, nil)
}

// RenameFile renames a file.
func (c *Client) RenameFile(ctx context.Context, fileID, renameTo string) (*APIResult, error) {
	form := map[string]string{
		"rename_to": renameTo,
		"file_id":   fileID,
	}
	return apiCall[APIResult](ctx, c, http.MethodPost, "rename", form, nil)
}

// RenameFolder renames a folder.
func (c *Client) RenameFolder(ctx context.Context, folderID, renameTo string) (*APIResult, error) {
	form := map[string]string{
		"rename_to": renameTo,
		"folder_id": folderID,
	}
	return apiCall[APIResult](ctx, c, http.MethodPost, "rename", form, nil)
}

// DeleteFile deletes a file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) (*APIResult, error) {
	return c.deleteItem(ctx, "file", fileID)
}

// DeleteFolder deletes a folder.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) (*APIResult, error) {
	return c.deleteItem(ctx, "folder", folderID)
}

// DeleteTorrent deletes an active downloading torrent.
func (c *Client) DeleteTorrent(ctx context.Context, torrentID string) (*APIResult, error) {
	return c.deleteItem(ctx, "torrent", torrentID)
}

// DeleteWishlist removes an item from the wishlist.
func (c *Client) DeleteWishlist(ctx context.Context, wishlistID string) (*APIResult, error) {
	form := map[string]string{"id": wishlistID}
	return apiCall[APIResult](ctx, c, http.MethodPost, "remove_wishlist", form, nil)
}

// GetDevices lists the devices connected to the account.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	raw, err := c.api(ctx, http.MethodGet, "get_devices", nil, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Devices []Device `json:"devices"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding get_devices response: %w", err)
	}

	return out.Devices, nil
}

// ChangeName changes the account's display name. The account password is
// required to confirm the change.
func (c *Client) ChangeName(ctx context.Context, name, password string) (*APIResult, error) {
	form := map[string]string{
		"setting":  "fullname",
		"password": password,
		"fullname": name,
	}
	return apiCall[APIResult](ctx, c, http.MethodPost, "user_account_modify", form, nil)
}

// ChangePassword changes the account's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (*APIResult, error) {
	form := map[string]string{
		"setting":             "password",
		"password":            oldPassword,
		"new_password":        newPassword,
		"new_password_repeat": newPassword,
	}
	return apiCall[APIResult](ctx, c, http.MethodPost, "user_account_modify", form, nil)
}

func (c *Client) deleteItem(ctx context.Context, itemType, itemID string) (*APIResult, error) {
	// the service expects a JSON array literal embedded as a form field
	form := map[string]string{
		"delete_arr": fmt.Sprintf(`[{"type":"%s","id":%s}]`, itemType, itemID),
	}
	return apiCall[APIResult](ctx, c, http.MethodPost, "delete", form, nil)
}

// readTorrentFile resolves a torrent file argument into its bytes, fetching
// remotely for http(s) URLs and reading locally otherwise.
func (c *Client) readTorrentFile(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating torrent file request: %w", err)
		}

		res, err := c.http.Do(req)
		if err != nil {
			return nil, &NetworkError{Op: "fetching torrent file", Err: err}
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching torrent file: unexpected status code: %d", res.StatusCode)
		}

		b, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, &NetworkError{Op: "fetching torrent file", Err: err}
		}
		return b, nil
	}

	b, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading torrent file: %w", err)
	}

	return b, nil
}

// apiCall executes one authenticated call and decodes the body into T.
func apiCall[T any](ctx context.Context, c *Client, method, fn string, form map[string]string, attachment []byte) (*T, error) {
	raw, err := c.api(ctx, method, fn, form, attachment)
	if err != nil {
		return nil, err
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", fn, err)
	}

	return out, nil
}
