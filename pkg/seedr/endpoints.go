package seedr

const (
	defaultBaseURL = "https://www.seedr.cc"

	// the remote service assigns a fixed client id per grant family
	deviceClientID   = "seedr_xbmc"
	passwordClientID = "seedr_chrome"

	expiredTokenError = "expired_token"

	torrentFileField = "torrent_file"
)

// Endpoints holds the URLs of the remote service. Every authenticated call
// targets Resource, with the operation selected by a "func" query parameter.
type Endpoints struct {
	Resource        string
	Token           string
	DeviceCode      string
	DeviceAuthorize string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Resource:        defaultBaseURL + "/oauth_test/resource.php",
		Token:           defaultBaseURL + "/oauth_test/token.php",
		DeviceCode:      defaultBaseURL + "/api/device/code",
		DeviceAuthorize: defaultBaseURL + "/api/device/authorize",
	}
}
