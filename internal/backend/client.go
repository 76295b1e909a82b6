/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend is the HTTP client for the e-paper admin API. All
// writes push the full issue document; the server's echoed response is
// the authoritative state after every round-trip.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"epaperadmin/internal/domain"
)

// APIError is a non-2xx response decoded from the server's error
// envelope. Responses carry either a "message" or an "error" field.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("server: HTTP %d", e.StatusCode)
}

type errEnvelope struct {
	Message string `json:"message"`
	Err     string `json:"error"`
}

// Client talks to the e-paper admin API with bearer-token auth.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a client. baseURL may include a trailing slash; it
// will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// AllowInsecureTLS skips certificate verification. Some newsroom
// installs front the backend with a self-signed proxy; the
// tls_insecure config flag opts into talking to them.
func (c *Client) AllowInsecureTLS() {
	c.client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env errEnvelope
		if json.NewDecoder(resp.Body).Decode(&env) == nil {
			apiErr.Message = env.Message
			if apiErr.Message == "" {
				apiErr.Message = env.Err
			}
		}
		return apiErr
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, dest)
}

// ListEpapers returns every issue, pages and regions included.
func (c *Client) ListEpapers(ctx context.Context) ([]domain.Epaper, error) {
	var list []domain.Epaper
	if err := c.doJSON(ctx, http.MethodGet, "/api/epapers/all", nil, &list); err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Normalize()
	}
	return list, nil
}

// GetEpaper fetches a single issue by id.
func (c *Client) GetEpaper(ctx context.Context, id string) (domain.Epaper, error) {
	var ep domain.Epaper
	if err := c.doJSON(ctx, http.MethodGet, "/api/epapers/"+url.PathEscape(id), nil, &ep); err != nil {
		return domain.Epaper{}, err
	}
	ep.Normalize()
	return ep, nil
}

// UpdateEpaper PUTs the full issue document and returns the server's
// echoed representation.
func (c *Client) UpdateEpaper(ctx context.Context, issue domain.Epaper) (domain.Epaper, error) {
	if err := domain.ValidatePages(issue.Pages); err != nil {
		return domain.Epaper{}, fmt.Errorf("refusing to save issue %s: %w", issue.ID, err)
	}
	var echo domain.Epaper
	path := "/api/epapers/" + url.PathEscape(issue.ID)
	if err := c.doJSON(ctx, http.MethodPut, path, issue, &echo); err != nil {
		return domain.Epaper{}, err
	}
	echo.Normalize()
	return echo, nil
}

// Persist implements the editor's persistence bridge.
func (c *Client) Persist(ctx context.Context, issue domain.Epaper) (domain.Epaper, error) {
	return c.UpdateEpaper(ctx, issue)
}

// DeleteEpaper removes an issue.
func (c *Client) DeleteEpaper(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/epapers/"+url.PathEscape(id), nil, nil)
}

// UploadPage posts one page image for an issue as multipart form data
// and returns the updated issue.
func (c *Client) UploadPage(ctx context.Context, epaperID string, pageNo, sortOrder int, filename string, image io.Reader) (domain.Epaper, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("epaperId", epaperID); err != nil {
		return domain.Epaper{}, err
	}
	if err := mw.WriteField("pageNo", strconv.Itoa(pageNo)); err != nil {
		return domain.Epaper{}, err
	}
	if err := mw.WriteField("sortOrder", strconv.Itoa(sortOrder)); err != nil {
		return domain.Epaper{}, err
	}
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return domain.Epaper{}, err
	}
	if _, err := io.Copy(fw, image); err != nil {
		return domain.Epaper{}, err
	}
	if err := mw.Close(); err != nil {
		return domain.Epaper{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/epapers/upload-page", &buf)
	if err != nil {
		return domain.Epaper{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var echo domain.Epaper
	if err := c.do(req, &echo); err != nil {
		return domain.Epaper{}, err
	}
	echo.Normalize()
	return echo, nil
}
