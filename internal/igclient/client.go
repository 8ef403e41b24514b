// Package igclient fetches public Instagram profile metadata through the
// web_profile_info endpoint, reporting every per-username outcome as a typed
// profile status rather than an error.
package igclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/conradchan/igrestore/internal/profiles"
)

const (
	defaultBaseURLString         = "https://www.instagram.com"
	webProfileInfoPath           = "/api/v1/users/web_profile_info/"
	profileURLFormat             = "https://instagram.com/%s"
	usernameQueryParameter       = "username"
	headerNameUserAgent          = "User-Agent"
	headerNameAccept             = "Accept"
	headerNameAcceptLanguage     = "Accept-Language"
	headerNameAppID              = "X-IG-App-ID"
	headerNameRequestedWith      = "X-Requested-With"
	headerNameCookie             = "Cookie"
	headerValueAccept            = "*/*"
	headerValueAcceptLanguage    = "en-US,en;q=0.9"
	headerValueRequestedWith     = "XMLHttpRequest"
	defaultAppIDValue            = "936619743392459"
	defaultUserAgentValue        = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	sessionCookieFormat          = "sessionid=%s"
	maxResponseBodyBytes         = 1 << 20
	defaultDialTimeout           = 5 * time.Second
	defaultTLSHandshakeTimeout   = 5 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultHTTPTimeout           = 15 * time.Second
	errDetailInvalidJSON         = "invalid json"
	parseBaseURLErrFormat        = "parse base url: %w"
)

// Config customizes a Client instance. The session identifier is an opaque
// pass-through cookie value; authentication flows are out of scope.
type Config struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
	AppID     string
	SessionID string
}

// Client fetches profile metadata over HTTP. Concurrent lookups for the same
// username are collapsed into a single request.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	userAgent   string
	appID       string
	sessionID   string
	flightGroup singleflight.Group
}

var _ profiles.Fetcher = (*Client)(nil)

// NewClient constructs a Client with sensible defaults for HTTP timeouts.
func NewClient(configuration Config) (*Client, error) {
	baseURLString := configuration.BaseURL
	if strings.TrimSpace(baseURLString) == "" {
		baseURLString = defaultBaseURLString
	}
	parsedBaseURL, parseErr := url.Parse(baseURLString)
	if parseErr != nil {
		return nil, fmt.Errorf(parseBaseURLErrFormat, parseErr)
	}

	httpClient := configuration.Client
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: defaultTransport(),
		}
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = defaultHTTPTimeout
	}

	userAgent := strings.TrimSpace(configuration.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgentValue
	}
	appID := strings.TrimSpace(configuration.AppID)
	if appID == "" {
		appID = defaultAppIDValue
	}

	client := &Client{
		httpClient: httpClient,
		baseURL:    parsedBaseURL,
		userAgent:  userAgent,
		appID:      appID,
		sessionID:  strings.TrimSpace(configuration.SessionID),
	}
	return client, nil
}

type webProfileResponse struct {
	Data struct {
		User *struct {
			FullName        string `json:"full_name"`
			ProfilePicURL   string `json:"profile_pic_url"`
			ProfilePicURLHD string `json:"profile_pic_url_hd"`
			IsPrivate       bool   `json:"is_private"`
			IsVerified      bool   `json:"is_verified"`
			Biography       string `json:"biography"`
			EdgeFollowedBy  struct {
				Count *int `json:"count"`
			} `json:"edge_followed_by"`
			EdgeFollow struct {
				Count *int `json:"count"`
			} `json:"edge_follow"`
			EdgeOwnerToTimelineMedia struct {
				Count *int `json:"count"`
			} `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
}

// FetchProfile retrieves the profile for a single username. Transport
// failures, auth rejections, and missing accounts all surface as statuses on
// the returned profile; the call itself never fails.
func (client *Client) FetchProfile(ctx context.Context, username string) profiles.Profile {
	resultChannel := client.flightGroup.DoChan(username, func() (interface{}, error) {
		return client.fetchOnce(ctx, username), nil
	})

	select {
	case <-ctx.Done():
		return profiles.Profile{
			Username:    username,
			Status:      profiles.StatusError,
			ErrorDetail: ctx.Err().Error(),
		}
	case result := <-resultChannel:
		profile, _ := result.Val.(profiles.Profile)
		return profile
	}
}

func (client *Client) fetchOnce(ctx context.Context, username string) profiles.Profile {
	profile := profiles.Profile{
		Username:   username,
		ProfileURL: fmt.Sprintf(profileURLFormat, username),
	}

	request, requestErr := client.newProfileRequest(ctx, username)
	if requestErr != nil {
		profile.Status = profiles.StatusError
		profile.ErrorDetail = requestErr.Error()
		return profile
	}

	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		profile.Status = profiles.StatusError
		profile.ErrorDetail = doErr.Error()
		return profile
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusNotFound:
		profile.Status = profiles.StatusNotFound
		return profile
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		profile.Status = profiles.StatusLoginRequired
		profile.HTTPStatus = response.StatusCode
		return profile
	case response.StatusCode != http.StatusOK:
		profile.Status = profiles.StatusHTTPError
		profile.HTTPStatus = response.StatusCode
		return profile
	}

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes))
	if readErr != nil {
		profile.Status = profiles.StatusError
		profile.ErrorDetail = readErr.Error()
		return profile
	}

	var decoded webProfileResponse
	if unmarshalErr := json.Unmarshal(body, &decoded); unmarshalErr != nil {
		profile.Status = profiles.StatusError
		profile.ErrorDetail = errDetailInvalidJSON
		return profile
	}

	user := decoded.Data.User
	if user == nil {
		// An empty payload is a confirmed absence, not a transport failure.
		profile.Status = profiles.StatusNotFound
		return profile
	}

	profile.Status = profiles.StatusActive
	profile.FullName = user.FullName
	profile.ProfilePicURL = user.ProfilePicURLHD
	if profile.ProfilePicURL == "" {
		profile.ProfilePicURL = user.ProfilePicURL
	}
	profile.Followers = user.EdgeFollowedBy.Count
	profile.Following = user.EdgeFollow.Count
	profile.Posts = user.EdgeOwnerToTimelineMedia.Count
	profile.IsPrivate = user.IsPrivate
	profile.IsVerified = user.IsVerified
	profile.Biography = user.Biography
	return profile
}

func (client *Client) newProfileRequest(ctx context.Context, username string) (*http.Request, error) {
	endpointURL := client.baseURL.ResolveReference(&url.URL{Path: webProfileInfoPath})
	queryValues := endpointURL.Query()
	queryValues.Set(usernameQueryParameter, username)
	endpointURL.RawQuery = queryValues.Encode()

	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL.String(), nil)
	if requestErr != nil {
		return nil, requestErr
	}
	request.Header.Set(headerNameUserAgent, client.userAgent)
	request.Header.Set(headerNameAccept, headerValueAccept)
	request.Header.Set(headerNameAcceptLanguage, headerValueAcceptLanguage)
	request.Header.Set(headerNameAppID, client.appID)
	request.Header.Set(headerNameRequestedWith, headerValueRequestedWith)
	if client.sessionID != "" {
		request.Header.Set(headerNameCookie, fmt.Sprintf(sessionCookieFormat, client.sessionID))
	}
	return request, nil
}

func defaultTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: defaultDialTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}
}
