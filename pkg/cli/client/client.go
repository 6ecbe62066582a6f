/* Copyright 2025 Leaf Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package client provides interfaces for interacting with the Leaf server
// and the data structures for responses
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrInvalidLogin is an error for invalid credentials for login
var ErrInvalidLogin = errors.New("wrong credentials")

// ErrContentTypeMismatch is an error for an unexpected Content-Type in a response
var ErrContentTypeMismatch = errors.New("content type mismatch")

// HTTPError represents an HTTP error response from the server
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf(`response %d "%s"`, e.StatusCode, e.Message)
}

// IsConflict returns true if the error is a 409 Conflict error
func (e *HTTPError) IsConflict() bool {
	return e.StatusCode == 409
}

var contentTypeApplicationJSON = "application/json"
var contentTypeNone = ""

// requestOptions contains options for requests
type requestOptions struct {
	HTTPClient *http.Client
	// ExpectedContentType is the Content-Type that the client is expecting from the server
	ExpectedContentType *string
}

const (
	// clientRateLimitPerSecond is the max requests per second the client will make
	clientRateLimitPerSecond = 50
	// clientRateLimitBurst is the burst capacity for rate limiting
	clientRateLimitBurst = 100
)

// rateLimitedTransport wraps an http.RoundTripper with rate limiting
type rateLimitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.transport.RoundTrip(req)
}

// NewRateLimitedHTTPClient creates an HTTP client with rate limiting
func NewRateLimitedHTTPClient() *http.Client {
	interval := time.Second / time.Duration(clientRateLimitPerSecond)

	transport := &rateLimitedTransport{
		transport: http.DefaultTransport,
		limiter:   rate.NewLimiter(rate.Every(interval), clientRateLimitBurst),
	}
	return &http.Client{
		Transport: transport,
	}
}

func getHTTPClient(ctx context.LeafCtx, options *requestOptions) *http.Client {
	if options != nil && options.HTTPClient != nil {
		return options.HTTPClient
	}

	if ctx.HTTPClient != nil {
		return ctx.HTTPClient
	}

	return &http.Client{}
}

func getExpectedContentType(options *requestOptions) string {
	if options != nil && options.ExpectedContentType != nil {
		return *options.ExpectedContentType
	}

	return contentTypeApplicationJSON
}

func getReq(ctx context.LeafCtx, path, method, body string) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s%s", ctx.APIEndpoint, path)
	req, err := http.NewRequest(method, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "constructing http request")
	}

	req.Header.Set("CLI-Version", ctx.Version)

	if ctx.SessionKey != "" {
		credential := fmt.Sprintf("Bearer %s", ctx.SessionKey)
		req.Header.Set("Authorization", credential)
	}

	return req, nil
}

// checkRespErr checks if the given http response indicates an error. It returns
// a decoded error message if so.
func checkRespErr(res *http.Response) error {
	if res.StatusCode < 400 {
		return nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "server responded with %d but client could not read the response body", res.StatusCode)
	}

	bodyStr := string(body)
	return &HTTPError{
		StatusCode: res.StatusCode,
		Message:    strings.TrimRight(bodyStr, "\n"),
	}
}

func checkContentType(res *http.Response, options *requestOptions) error {
	expected := getExpectedContentType(options)

	got := res.Header.Get("Content-Type")
	if got != expected {
		return errors.Wrapf(ErrContentTypeMismatch, "got: '%s' want: '%s'. Did you configure your endpoint correctly?", got, expected)
	}

	return nil
}

// doReq does a http request to the given path in the api endpoint
func doReq(ctx context.LeafCtx, method, path, body string, options *requestOptions) (*http.Response, error) {
	req, err := getReq(ctx, path, method, body)
	if err != nil {
		return nil, errors.Wrap(err, "getting request")
	}

	log.Debug("HTTP %s %s\n", method, path)

	hc := getHTTPClient(ctx, options)
	res, err := hc.Do(req)
	if err != nil {
		return res, errors.Wrap(err, "making http request")
	}

	log.Debug("HTTP %d %s\n", res.StatusCode, res.Status)

	if err = checkRespErr(res); err != nil {
		return res, errors.Wrap(err, "server responded with an error")
	}

	if err = checkContentType(res, options); err != nil {
		return res, errors.Wrap(err, "unexpected Content-Type")
	}

	return res, nil
}

// doAuthorizedReq does a http request to the given path in the api endpoint as a user,
// with the appropriate headers. The given path should include the preceding slash.
func doAuthorizedReq(ctx context.LeafCtx, method, path, body string, options *requestOptions) (*http.Response, error) {
	if ctx.SessionKey == "" {
		return nil, errors.New("no session key found")
	}

	return doReq(ctx, method, path, body, options)
}

// GetSyncStateResp is the response get sync state endpoint
type GetSyncStateResp struct {
	FullSyncBefore int   `json:"full_sync_before"`
	MaxUSN         int   `json:"max_usn"`
	CurrentTime    int64 `json:"current_time"`
}

// GetSyncState gets the sync state response from the server
func GetSyncState(ctx context.LeafCtx) (GetSyncStateResp, error) {
	var ret GetSyncStateResp

	res, err := doAuthorizedReq(ctx, "GET", "/v1/sync/state", "", nil)
	if err != nil {
		return ret, errors.Wrap(err, "making the request")
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return ret, errors.Wrap(err, "reading the response body")
	}

	if err = json.Unmarshal(body, &ret); err != nil {
		return ret, errors.Wrap(err, "unmarshalling the payload")
	}

	return ret, nil
}

// SyncFragPage represents a page in a sync fragment and contains only the
// necessary information for the client to sync the page locally
type SyncFragPage struct {
	UUID        string    `json:"uuid"`
	FolderUUID  *string   `json:"folder_uuid"`
	USN         int       `json:"usn"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AddedOn     int64     `json:"added_on"`
	EditedOn    int64     `json:"edited_on"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Kind        string    `json:"kind"`
	Public      bool      `json:"public"`
	ParentCount int       `json:"parent_count"`
	ChildCount  int       `json:"child_count"`
	Deleted     bool      `json:"deleted"`
}

// SyncFragFolder represents a folder in a sync fragment
type SyncFragFolder struct {
	UUID            string    `json:"uuid"`
	USN             int       `json:"usn"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	AddedOn         int64     `json:"added_on"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	ThumbnailURI    *string   `json:"thumbnail_uri"`
	PageCount       int       `json:"page_count"`
	LastPageAddedOn int64     `json:"last_page_added_on"`
	Deleted         bool      `json:"deleted"`
}

// SyncFragAlarm represents an alarm in a sync fragment
type SyncFragAlarm struct {
	UUID               string    `json:"uuid"`
	PageUUID           string    `json:"page_uuid"`
	USN                int       `json:"usn"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	AddedOn            int64     `json:"added_on"`
	EditedOn           int64     `json:"edited_on"`
	NextTriggerAt      *int64    `json:"next_trigger_at"`
	SentCount          int       `json:"sent_count"`
	LastNotificationID *string   `json:"last_notification_id"`
	Deleted            bool      `json:"deleted"`
}

// SyncFragment contains a piece of information about the server's state.
type SyncFragment struct {
	FragMaxUSN      int              `json:"frag_max_usn"`
	UserMaxUSN      int              `json:"user_max_usn"`
	CurrentTime     int64            `json:"current_time"`
	Pages           []SyncFragPage   `json:"pages"`
	Folders         []SyncFragFolder `json:"folders"`
	Alarms          []SyncFragAlarm  `json:"alarms"`
	ExpungedPages   []string         `json:"expunged_pages"`
	ExpungedFolders []string         `json:"expunged_folders"`
	ExpungedAlarms  []string         `json:"expunged_alarms"`
}

// GetSyncFragmentResp is the response from the get sync fragment endpoint
type GetSyncFragmentResp struct {
	Fragment SyncFragment `json:"fragment"`
}

// GetSyncFragment gets a sync fragment response from the server
func GetSyncFragment(ctx context.LeafCtx, afterUSN int) (GetSyncFragmentResp, error) {
	v := url.Values{}
	v.Set("after_usn", strconv.Itoa(afterUSN))
	queryStr := v.Encode()

	path := fmt.Sprintf("/v1/sync/fragment?%s", queryStr)
	res, err := doAuthorizedReq(ctx, "GET", path, "", nil)
	if err != nil {
		return GetSyncFragmentResp{}, errors.Wrap(err, "making the request")
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return GetSyncFragmentResp{}, errors.Wrap(err, "reading the response body")
	}

	var resp GetSyncFragmentResp
	if err = json.Unmarshal(body, &resp); err != nil {
		return resp, errors.Wrap(err, "unmarshalling the payload")
	}

	return resp, nil
}

// RespFolder is the folder in the responses from the folder apis
type RespFolder struct {
	UUID            string    `json:"uuid"`
	USN             int       `json:"usn"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	ThumbnailURI    *string   `json:"thumbnail_uri"`
	PageCount       int       `json:"page_count"`
	LastPageAddedOn int64     `json:"last_page_added_on"`
}

// CreateFolderPayload is a payload for creating a folder
type CreateFolderPayload struct {
	Name string `json:"name"`
}

// CreateFolderResp is the response from create folder api
type CreateFolderResp struct {
	Folder RespFolder `json:"folder"`
}

// CreateFolder creates a new folder in the server
func CreateFolder(ctx context.LeafCtx, name string) (CreateFolderResp, error) {
	payload := CreateFolderPayload{
		Name: name,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return CreateFolderResp{}, errors.Wrap(err, "marshaling payload")
	}

	res, err := doAuthorizedReq(ctx, "POST", "/v1/folders", string(b), nil)
	if err != nil {
		return CreateFolderResp{}, errors.Wrap(err, "posting a folder to the server")
	}

	var resp CreateFolderResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return resp, errors.Wrap(err, "decoding response payload")
	}

	return resp, nil
}

type updateFolderPayload struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	ThumbnailURI    *string `json:"thumbnail_uri"`
	LastPageAddedOn *int64  `json:"last_page_added_on"`
}

// UpdateFolderResp is the response from update folder api
type UpdateFolderResp struct {
	Folder RespFolder `json:"folder"`
}

// UpdateFolder updates a folder in the server
func UpdateFolder(ctx context.LeafCtx, uuid string, name *string, description *string, thumbnailURI *string, lastPageAddedOn *int64) (UpdateFolderResp, error) {
	payload := updateFolderPayload{
		Name:            name,
		Description:     description,
		ThumbnailURI:    thumbnailURI,
		LastPageAddedOn: lastPageAddedOn,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return UpdateFolderResp{}, errors.Wrap(err, "marshaling payload")
	}

	endpoint := fmt.Sprintf("/v1/folders/%s", uuid)
	res, err := doAuthorizedReq(ctx, "PATCH", endpoint, string(b), nil)
	if err != nil {
		return UpdateFolderResp{}, errors.Wrap(err, "patching a folder in the server")
	}

	var resp UpdateFolderResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return resp, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// DeleteFolderResp is the response from delete folder api
type DeleteFolderResp struct {
	Status int        `json:"status"`
	Folder RespFolder `json:"folder"`
}

// DeleteFolder deletes a folder in the server
func DeleteFolder(ctx context.LeafCtx, uuid string) (DeleteFolderResp, error) {
	endpoint := fmt.Sprintf("/v1/folders/%s", uuid)
	res, err := doAuthorizedReq(ctx, "DELETE", endpoint, "", nil)
	if err != nil {
		return DeleteFolderResp{}, errors.Wrap(err, "deleting a folder in the server")
	}

	var resp DeleteFolderResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return resp, errors.Wrap(err, "decoding the response")
	}

	return resp, nil
}

// CreatePagePayload is a payload for creating a page
type CreatePagePayload struct {
	UUID       string  `json:"uuid"`
	FolderUUID *string `json:"folder_uuid"`
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	Kind       string  `json:"kind"`
}

// RespPage is a page in the response
type RespPage struct {
	UUID        string    `json:"uuid"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Kind        string    `json:"kind"`
	AddedOn     int64     `json:"added_on"`
	Public      bool      `json:"public"`
	ParentCount int       `json:"parent_count"`
	ChildCount  int       `json:"child_count"`
	USN         int       `json:"usn"`
	FolderUUID  *string   `json:"folder_uuid"`
}

// CreatePageResp is the response from create page endpoint
type CreatePageResp struct {
	Result RespPage `json:"result"`
}

// CreatePage creates a page in the server. The page id is chosen by the
// client so that the local replica keeps its id after the upload.
func CreatePage(ctx context.LeafCtx, payload CreatePagePayload) (CreatePageResp, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return CreatePageResp{}, errors.Wrap(err, "marshaling payload")
	}

	res, err := doAuthorizedReq(ctx, "POST", "/v1/pages", string(b), nil)
	if err != nil {
		return CreatePageResp{}, errors.Wrap(err, "posting a page to the server")
	}

	var resp CreatePageResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return CreatePageResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// UpdatePagePayload is a payload for updating a page
type UpdatePagePayload struct {
	FolderUUID *string `json:"folder_uuid"`
	Title      *string `json:"title"`
	Body       *string `json:"body"`
	Kind       *string `json:"kind"`
	Public     *bool   `json:"public"`
}

// UpdatePageResp is the response from update page api
type UpdatePageResp struct {
	Status int      `json:"status"`
	Result RespPage `json:"result"`
}

// UpdatePage updates a page in the server
func UpdatePage(ctx context.LeafCtx, uuid string, payload UpdatePagePayload) (UpdatePageResp, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return UpdatePageResp{}, errors.Wrap(err, "marshaling payload")
	}

	endpoint := fmt.Sprintf("/v1/pages/%s", uuid)
	res, err := doAuthorizedReq(ctx, "PATCH", endpoint, string(b), nil)
	if err != nil {
		return UpdatePageResp{}, errors.Wrap(err, "patching a page in the server")
	}

	var resp UpdatePageResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return UpdatePageResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// DeletePageResp is the response from remove page api
type DeletePageResp struct {
	Status int      `json:"status"`
	Result RespPage `json:"result"`
}

// DeletePage removes a page in the server
func DeletePage(ctx context.LeafCtx, uuid string) (DeletePageResp, error) {
	endpoint := fmt.Sprintf("/v1/pages/%s", uuid)
	res, err := doAuthorizedReq(ctx, "DELETE", endpoint, "", nil)
	if err != nil {
		return DeletePageResp{}, errors.Wrap(err, "deleting a page in the server")
	}

	var resp DeletePageResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return DeletePageResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// RespAlarm is an alarm in the response
type RespAlarm struct {
	UUID               string    `json:"uuid"`
	PageUUID           string    `json:"page_uuid"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	NextTriggerAt      *int64    `json:"next_trigger_at"`
	SentCount          int       `json:"sent_count"`
	LastNotificationID *string   `json:"last_notification_id"`
	USN                int       `json:"usn"`
}

// CreateAlarmPayload is a payload for creating an alarm
type CreateAlarmPayload struct {
	PageUUID      string `json:"page_uuid"`
	NextTriggerAt *int64 `json:"next_trigger_at"`
}

// CreateAlarmResp is the response from create alarm endpoint
type CreateAlarmResp struct {
	Result RespAlarm `json:"result"`
}

// CreateAlarm creates an alarm in the server
func CreateAlarm(ctx context.LeafCtx, payload CreateAlarmPayload) (CreateAlarmResp, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return CreateAlarmResp{}, errors.Wrap(err, "marshaling payload")
	}

	res, err := doAuthorizedReq(ctx, "POST", "/v1/alarms", string(b), nil)
	if err != nil {
		return CreateAlarmResp{}, errors.Wrap(err, "posting an alarm to the server")
	}

	var resp CreateAlarmResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return CreateAlarmResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// UpdateAlarmPayload is a payload for updating an alarm
type UpdateAlarmPayload struct {
	PageUUID      *string `json:"page_uuid"`
	NextTriggerAt *int64  `json:"next_trigger_at"`
}

// UpdateAlarmResp is the response from update alarm api
type UpdateAlarmResp struct {
	Status int       `json:"status"`
	Result RespAlarm `json:"result"`
}

// UpdateAlarm updates an alarm in the server
func UpdateAlarm(ctx context.LeafCtx, uuid string, payload UpdateAlarmPayload) (UpdateAlarmResp, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return UpdateAlarmResp{}, errors.Wrap(err, "marshaling payload")
	}

	endpoint := fmt.Sprintf("/v1/alarms/%s", uuid)
	res, err := doAuthorizedReq(ctx, "PATCH", endpoint, string(b), nil)
	if err != nil {
		return UpdateAlarmResp{}, errors.Wrap(err, "patching an alarm in the server")
	}

	var resp UpdateAlarmResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return UpdateAlarmResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// DeleteAlarmResp is the response from remove alarm api
type DeleteAlarmResp struct {
	Status int       `json:"status"`
	Result RespAlarm `json:"result"`
}

// DeleteAlarm removes an alarm in the server
func DeleteAlarm(ctx context.LeafCtx, uuid string) (DeleteAlarmResp, error) {
	endpoint := fmt.Sprintf("/v1/alarms/%s", uuid)
	res, err := doAuthorizedReq(ctx, "DELETE", endpoint, "", nil)
	if err != nil {
		return DeleteAlarmResp{}, errors.Wrap(err, "deleting an alarm in the server")
	}

	var resp DeleteAlarmResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return DeleteAlarmResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// GetFoldersResp is a response from get folders endpoint
type GetFoldersResp []struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// GetFolders gets folders from the server
func GetFolders(ctx context.LeafCtx) (GetFoldersResp, error) {
	res, err := doAuthorizedReq(ctx, "GET", "/v1/folders", "", nil)
	if err != nil {
		return GetFoldersResp{}, errors.Wrap(err, "making http request")
	}

	var resp GetFoldersResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return GetFoldersResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// SigninPayload is a payload for /v1/signin
type SigninPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SigninResponse is a response from /v1/signin endpoint
type SigninResponse struct {
	Key       string `json:"key"`
	ExpiresAt int64  `json:"expires_at"`
	UserUUID  string `json:"user_uuid"`
}

// Signin requests a session token
func Signin(ctx context.LeafCtx, email, password string) (SigninResponse, error) {
	payload := SigninPayload{
		Email:    email,
		Password: password,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return SigninResponse{}, errors.Wrap(err, "marshaling payload")
	}
	res, err := doReq(ctx, "POST", "/v1/signin", string(b), nil)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
			return SigninResponse{}, ErrInvalidLogin
		}
		return SigninResponse{}, errors.Wrap(err, "making http request")
	}

	var resp SigninResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return SigninResponse{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// Signout deletes a user session on the server side
func Signout(ctx context.LeafCtx, sessionKey string) error {
	// Share the transport, and thus the rate limiter, from ctx.HTTPClient
	// but do not follow redirects
	var hc *http.Client
	if ctx.HTTPClient != nil {
		hc = &http.Client{
			Transport: ctx.HTTPClient.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	} else {
		log.Warnf("No HTTP client configured for signout - falling back\n")
		hc = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	opts := requestOptions{
		HTTPClient:          hc,
		ExpectedContentType: &contentTypeNone,
	}
	_, err := doAuthorizedReq(ctx, "POST", "/v1/signout", "", &opts)
	if err != nil {
		return errors.Wrap(err, "making http request")
	}

	return nil
}
