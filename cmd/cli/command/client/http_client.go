package client

// http_client.go = handles HTTP client functionality for the imis CLI.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"imis/internal/microservices/http-api/dto"
	"imis/internal/microservices/notify"
)

// defines the HTTP client structure and methods
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// constructor for HTTP client
func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// set token for HTTP client
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// ListNotifications fetches the caller's inbox
func (c *HTTPClient) ListNotifications() (*dto.NotificationListResponse, error) {
	var res dto.NotificationListResponse
	if err := c.do(http.MethodGet, "/api/notifications", nil, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RemoveNotification takes the caller off one notification
func (c *HTTPClient) RemoveNotification(id int64) error {
	return c.do(http.MethodDelete, "/api/notifications/"+strconv.FormatInt(id, 10), nil, http.StatusNoContent, nil)
}

// ClearNotifications takes the caller off every notification
func (c *HTTPClient) ClearNotifications() (int, error) {
	var res dto.ClearNotificationsResponse
	if err := c.do(http.MethodDelete, "/api/notifications", nil, http.StatusOK, &res); err != nil {
		return 0, err
	}
	return res.Removed, nil
}

// Presence fetches live connection counts
func (c *HTTPClient) Presence() (*dto.PresenceResponse, error) {
	var res dto.PresenceResponse
	if err := c.do(http.MethodGet, "/api/presence", nil, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SendIntent posts an intent to the internal trigger; needs a notify:publish token
func (c *HTTPClient) SendIntent(intent *notify.WireIntent) error {
	return c.do(http.MethodPost, "/internal/notify", intent, http.StatusAccepted, nil)
}

func (c *HTTPClient) do(method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close() // Ensure the response body is closed

	if response.StatusCode != want {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(response.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s %s failed with status %s: %s", method, path, response.Status, apiErr.Error)
		}
		return fmt.Errorf("%s %s failed with status %s", method, path, response.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}
