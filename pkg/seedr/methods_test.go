package seedr

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DeleteItems_WireFormat(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) (*APIResult, error)
		want string
	}{
		{
			name: "file",
			call: func(c *Client) (*APIResult, error) { return c.DeleteFile(context.Background(), "42") },
			want: `[{"type":"file","id":42}]`,
		},
		{
			name: "folder",
			call: func(c *Client) (*APIResult, error) { return c.DeleteFolder(context.Background(), "7") },
			want: `[{"type":"folder","id":7}]`,
		},
		{
			name: "torrent",
			call: func(c *Client) (*APIResult, error) { return c.DeleteTorrent(context.Background(), "99") },
			want: `[{"type":"torrent","id":99}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.resource = func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "delete", r.URL.Query().Get("func"))
				require.NoError(t, r.ParseForm())
				assert.Equal(t, tt.want, r.PostForm.Get("delete_arr"))
				writeJSON(w, `{"result":true}`)
			}

			c := ts.client(t, Token{AccessToken: "TOKEN"})

			res, err := tt.call(c)
			require.NoError(t, err)
			assert.True(t, res.Result)
		})
	}
}

func TestClient_CreateArchive_WireFormat(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "create_empty_archive", r.URL.Query().Get("func"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, `[{"type":"folder","id":12}]`, r.PostForm.Get("archive_arr"))
		writeJSON(w, `{"result":true,"archive_id":555,"archive_url":"https://www.seedr.cc/archive/555"}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	res, err := c.CreateArchive(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, int64(555), res.ArchiveID)
	assert.Equal(t, "https://www.seedr.cc/archive/555", res.ArchiveURL)
}

func TestClient_ListContents(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "list_contents", r.URL.Query().Get("func"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "folder", r.PostForm.Get("content_type"))
		assert.Equal(t, "0", r.PostForm.Get("content_id"))
		writeJSON(w, `{
			"id": 0, "name": "root", "space_used": 1024, "space_max": 5368709120,
			"folders": [{"id": 1, "name": "movies", "size": 1024}],
			"files": [{"id": 2, "name": "a.mkv", "size": 512, "last_updated": "2024-03-01 10:30:00"}],
			"torrents": [{"id": 3, "name": "ubuntu.iso", "progress": "42"}],
			"result": true
		}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	res, err := c.ListContents(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, res.Folders, 1)
	assert.Equal(t, "movies", res.Folders[0].Name)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "a.mkv", res.Files[0].Name)
	assert.Equal(t, 2024, res.Files[0].LastUpdated.Year())
	require.Len(t, res.Torrents, 1)
	assert.Equal(t, "42", res.Torrents[0].Progress)
}

func TestClient_AddTorrent_Magnet(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "add_torrent", r.URL.Query().Get("func"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "magnet:?xt=urn:btih:abc", r.PostForm.Get("torrent_magnet"))
		assert.Equal(t, "-1", r.PostForm.Get("folder_id"))
		writeJSON(w, `{"result":true,"user_torrent_id":77,"title":"ubuntu","torrent_hash":"abc"}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	res, err := c.AddTorrent(context.Background(), AddTorrentOptions{MagnetLink: "magnet:?xt=urn:btih:abc"})
	require.NoError(t, err)
	assert.Equal(t, int64(77), res.UserTorrentID)
	assert.Equal(t, "ubuntu", res.Title)
}

func TestClient_AddTorrent_LocalFile(t *testing.T) {
	torrentPath := filepath.Join(t.TempDir(), "test.torrent")
	require.NoError(t, os.WriteFile(torrentPath, []byte("d8:announce0:e"), 0o644))

	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		form, err := mr.ReadForm(1 << 20)
		require.NoError(t, err)

		assert.Equal(t, "5", form.Value["folder_id"][0])

		files := form.File["torrent_file"]
		require.Len(t, files, 1)
		f, err := files[0].Open()
		require.NoError(t, err)
		defer f.Close()
		contents, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "d8:announce0:e", string(contents))

		writeJSON(w, `{"result":true,"user_torrent_id":1}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	_, err := c.AddTorrent(context.Background(), AddTorrentOptions{
		TorrentFile: torrentPath,
		FolderID:    "5",
	})
	require.NoError(t, err)
}

func TestClient_AddTorrent_RemoteFile(t *testing.T) {
	fileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("d8:announce0:e"))
	}))
	defer fileSrv.Close()

	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		form, err := mr.ReadForm(1 << 20)
		require.NoError(t, err)

		files := form.File["torrent_file"]
		require.Len(t, files, 1)
		writeJSON(w, `{"result":true}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	_, err := c.AddTorrent(context.Background(), AddTorrentOptions{
		TorrentFile: fileSrv.URL + "/test.torrent",
	})
	require.NoError(t, err)
}

func TestClient_FetchFile(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fetch_file", r.URL.Query().Get("func"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "42", r.PostForm.Get("folder_file_id"))
		writeJSON(w, `{"result":true,"url":"https://dl.seedr.cc/x","name":"a.mkv","size":512}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	res, err := c.FetchFile(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "https://dl.seedr.cc/x", res.URL)
	assert.Equal(t, "a.mkv", res.Name)
}

func TestClient_Rename(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rename", r.URL.Query().Get("func"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "new name", r.PostForm.Get("rename_to"))
		assert.Equal(t, "42", r.PostForm.Get("file_id"))
		assert.Empty(t, r.PostForm.Get("folder_id"))
		writeJSON(w, `{"result":true}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	_, err := c.RenameFile(context.Background(), "42", "new name")
	require.NoError(t, err)
}

func TestClient_SearchFiles(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "search_files", r.URL.Query().Get("func"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ubuntu", r.PostForm.Get("search_query"))
		writeJSON(w, `{"name":"search","files":[{"id":1,"name":"ubuntu.iso"}]}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	res, err := c.SearchFiles(context.Background(), "ubuntu")
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "ubuntu.iso", res.Files[0].Name)
}

func TestClient_GetDevices(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "get_devices", r.URL.Query().Get("func"))
		writeJSON(w, `{"devices":[{"client_id":"seedr_xbmc","client_name":"Kodi","device_code":"DEVICE"}]}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	devices, err := c.GetDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Kodi", devices[0].ClientName)
}

func TestClient_ChangePassword(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user_account_modify", r.URL.Query().Get("func"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("setting"))
		assert.Equal(t, "old", r.PostForm.Get("password"))
		assert.Equal(t, "new", r.PostForm.Get("new_password"))
		assert.Equal(t, "new", r.PostForm.Get("new_password_repeat"))
		writeJSON(w, `{"result":true}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	_, err := c.ChangePassword(context.Background(), "old", "new")
	require.NoError(t, err)
}

func TestClient_ChangeName(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "fullname", r.PostForm.Get("setting"))
		assert.Equal(t, "New Name", r.PostForm.Get("fullname"))
		assert.Equal(t, "secret", r.PostForm.Get("password"))
		writeJSON(w, `{"result":true}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	_, err := c.ChangeName(context.Background(), "New Name", "secret")
	require.NoError(t, err)
}

func TestClient_DeleteWishlist(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "remove_wishlist", r.URL.Query().Get("func"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "11", r.PostForm.Get("id"))
		writeJSON(w, `{"result":true}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	_, err := c.DeleteWishlist(context.Background(), "11")
	require.NoError(t, err)
}

func TestClient_ScanPage(t *testing.T) {
	ts := newTestServer(t)
	ts.resource = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "scan_page", r.URL.Query().Get("func"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://example.com/torrents", r.PostForm.Get("url"))
		writeJSON(w, `{"result":true,"torrents":[{"url":"https://example.com/a.torrent","title":"a"}]}`)
	}

	c := ts.client(t, Token{AccessToken: "TOKEN"})

	res, err := c.ScanPage(context.Background(), "https://example.com/torrents")
	require.NoError(t, err)
	require.Len(t, res.Torrents, 1)
	assert.Equal(t, "a", res.Torrents[0].Title)
}
