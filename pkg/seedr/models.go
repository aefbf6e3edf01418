package seedr

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Timestamp decodes the API's mixed datetime encodings: "2006-01-02 15:04:05"
// strings and unix epoch numbers. Unparseable values decode as the zero time
// rather than failing the whole response.
type Timestamp struct {
	time.Time
}

const timestampLayout = "2006-01-02 15:04:05"

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "" {
			return nil
		}
		parsed, err := time.Parse(timestampLayout, s)
		if err != nil {
			return nil
		}
		t.Time = parsed
		return nil
	}

	var epoch float64
	if err := json.Unmarshal(b, &epoch); err != nil {
		return nil
	}
	t.Time = time.Unix(int64(epoch), 0)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(timestampLayout))
}

// File is a file stored in the account.
type File struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	FolderID    int64     `json:"folder_id"`
	Storage     string    `json:"storage"`
	LastUpdated Timestamp `json:"last_updated"`
	StreamLink  string    `json:"stream_link,omitempty"`
	StreamAudio string    `json:"stream_audio,omitempty"`
	VideoCodec  string    `json:"video_codec,omitempty"`
	VideoHeight int       `json:"video_height,omitempty"`
	VideoWidth  int       `json:"video_width,omitempty"`
}

// Folder is a folder in the account; it can contain files, sub-folders and
// active torrents.
type Folder struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Fullname   string    `json:"fullname"`
	Size       int64     `json:"size"`
	ParentID   int64     `json:"parent_id"`
	LastUpdate Timestamp `json:"last_update"`
	Timestamp  Timestamp `json:"timestamp"`
	IsShared   bool      `json:"is_shared"`
	PlayAudio  bool      `json:"play_audio"`
	PlayVideo  bool      `json:"play_video"`
	Folders    []Folder  `json:"folders,omitempty"`
	Files      []File    `json:"files,omitempty"`
	Torrents   []Torrent `json:"torrents,omitempty"`
}

// Torrent is an active transfer in the account.
type Torrent struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Size            int64     `json:"size"`
	Hash            string    `json:"hash"`
	Progress        string    `json:"progress"`
	ProgressURL     string    `json:"progress_url,omitempty"`
	Folder          string    `json:"folder"`
	LastUpdate      Timestamp `json:"last_update"`
	DownloadRate    int64     `json:"download_rate"`
	UploadRate      int64     `json:"upload_rate"`
	ConnectedTo     int       `json:"connected_to"`
	DownloadingFrom int       `json:"downloading_from"`
	UploadingTo     int       `json:"uploading_to"`
	Seeders         int       `json:"seeders"`
	Leechers        int       `json:"leechers"`
	Warnings        string    `json:"warnings,omitempty"`
	Stopped         int       `json:"stopped"`
	TorrentQuality  int       `json:"torrent_quality,omitempty"`
}

// ListContentsResult is the content listing of one folder, with the
// account's storage totals.
type ListContentsResult struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Fullname  string    `json:"fullname"`
	ParentID  int64     `json:"parent"`
	SpaceUsed int64     `json:"space_used"`
	SpaceMax  int64     `json:"space_max"`
	Timestamp Timestamp `json:"timestamp"`
	Folders   []Folder  `json:"folders,omitempty"`
	Files     []File    `json:"files,omitempty"`
	Torrents  []Torrent `json:"torrents,omitempty"`
	Result    bool      `json:"result"`
}

// AccountSettings are the user's configurable settings.
type AccountSettings struct {
	AllowRemoteAccess  bool   `json:"allow_remote_access"`
	SiteLanguage       string `json:"site_language"`
	SubtitlesLanguage  string `json:"subtitles_language"`
	EmailAnnouncements bool   `json:"email_announcements"`
	EmailNewsletter    bool   `json:"email_newsletter"`
}

// AccountInfo is the user's account status.
type AccountInfo struct {
	Username        string `json:"username"`
	UserID          int64  `json:"user_id"`
	Premium         int    `json:"premium"`
	PackageID       int64  `json:"package_id"`
	PackageName     string `json:"package_name"`
	SpaceUsed       int64  `json:"space_used"`
	SpaceMax        int64  `json:"space_max"`
	BandwidthUsed   int64  `json:"bandwidth_used"`
	Email           string `json:"email"`
	Invites         int    `json:"invites"`
	InvitesAccepted int    `json:"invites_accepted"`
	MaxInvites      int    `json:"max_invites"`
}

type UserSettings struct {
	Settings AccountSettings `json:"settings"`
	Account  AccountInfo     `json:"account"`
	Country  string          `json:"country"`
}

// MemoryBandwidth is the account's storage and bandwidth usage.
type MemoryBandwidth struct {
	BandwidthUsed int64 `json:"bandwidth_used"`
	BandwidthMax  int64 `json:"bandwidth_max"`
	SpaceUsed     int64 `json:"space_used"`
	SpaceMax      int64 `json:"space_max"`
	IsPremium     int   `json:"is_premium"`
}

// SpaceUsage renders the storage usage as "used/max" in binary units.
func (m *MemoryBandwidth) SpaceUsage() string {
	return fmt.Sprintf("%s/%s", humanize.IBytes(uint64(m.SpaceUsed)), humanize.IBytes(uint64(m.SpaceMax)))
}

// BandwidthUsage renders the bandwidth usage as "used/max" in binary units.
func (m *MemoryBandwidth) BandwidthUsage() string {
	return fmt.Sprintf("%s/%s", humanize.IBytes(uint64(m.BandwidthUsed)), humanize.IBytes(uint64(m.BandwidthMax)))
}

// Device is a device connected to the account via the device flow.
type Device struct {
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name"`
	DeviceCode string `json:"device_code"`
	TK         string `json:"tk"`
}

// APIResult is the generic result envelope of mutation endpoints.
type APIResult struct {
	Result bool `json:"result"`
	Code   int  `json:"code,omitempty"`
}

type AddTorrentResult struct {
	Result        bool   `json:"result"`
	UserTorrentID int64  `json:"user_torrent_id"`
	Title         string `json:"title"`
	TorrentHash   string `json:"torrent_hash"`
	Code          int    `json:"code,omitempty"`
}

// ScannedTorrent is one torrent found by ScanPage.
type ScannedTorrent struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Magnet string `json:"magnet,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

type ScanPageResult struct {
	Result   bool             `json:"result"`
	Torrents []ScannedTorrent `json:"torrents,omitempty"`
}

type FetchFileResult struct {
	Result bool   `json:"result"`
	URL    string `json:"url"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Code   int    `json:"code,omitempty"`
}

type CreateArchiveResult struct {
	Result     bool   `json:"result"`
	ArchiveID  int64  `json:"archive_id"`
	ArchiveURL string `json:"archive_url"`
	Code       int    `json:"code,omitempty"`
}
