package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Daskott/lifealert/server/alerting"
	"github.com/Daskott/lifealert/server/dispatch"
	"github.com/Daskott/lifealert/server/models"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
)

// APIError is a non 2xx response from the lifealert server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v (%v)", e.Message, e.StatusCode)
}

type Session struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type Contacts struct {
	Phones string `json:"phones"`
	Emails string `json:"emails"`
}

// AlertResult is the body of a successful send-alert response
type AlertResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	alerting.Outcome
}

// Recipients is the number of contacts the server attempted to reach
func (r *AlertResult) Recipients() int {
	return r.Delivered + r.Failed
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Errors  []string        `json:"errors"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to a lifealert server over HTTP. A Client is safe for
// concurrent use once its token is set.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: cleanhttp.DefaultPooledClient(),
	}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) SignUp(ctx context.Context, email, password string) error {
	return c.do(ctx, "POST", "/users", map[string]string{"email": email, "password": password}, nil)
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	session := &Session{}
	err := c.do(ctx, "POST", "/login", map[string]string{"email": email, "password": password}, session)
	if err != nil {
		return nil, err
	}

	c.token = session.Token
	return session, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, "POST", "/logout", nil, nil)
	c.token = ""
	return err
}

func (c *Client) Contacts(ctx context.Context, userID string) (*Contacts, error) {
	contacts := &Contacts{}
	err := c.do(ctx, "GET", "/users/"+url.PathEscape(userID)+"/contacts", nil, contacts)
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

func (c *Client) SaveContacts(ctx context.Context, userID string, contacts Contacts) error {
	return c.do(ctx, "PUT", "/users/"+url.PathEscape(userID)+"/contacts", contacts, nil)
}

// SendAlert submits one alert for userID at loc
func (c *Client) SendAlert(ctx context.Context, userID string, loc dispatch.Location) (*AlertResult, error) {
	body := map[string]interface{}{"lat": loc.Latitude, "lng": loc.Longitude, "userId": userID}

	resp, err := c.request(ctx, "POST", "/api/send-alert", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	result := &AlertResult{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, errors.Wrap(err, "decode send-alert response")
	}

	return result, nil
}

// Alerts returns every alert the caller may see, most recent first
func (c *Client) Alerts(ctx context.Context) ([]models.Alert, error) {
	alerts := []models.Alert{}
	err := c.do(ctx, "GET", "/alerts", nil, &alerts)
	if err != nil {
		return nil, err
	}

	return alerts, nil
}

// WatchAlerts calls onAlert for every alert inserted while the feed is open.
// It blocks until ctx is done or the server closes the feed.
func (c *Client) WatchAlerts(ctx context.Context, onAlert func(models.Alert)) error {
	feedURL, err := url.Parse(c.baseURL + "/alerts/feed")
	if err != nil {
		return err
	}

	switch feedURL.Scheme {
	case "https":
		feedURL.Scheme = "wss"
	default:
		feedURL.Scheme = "ws"
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, feedURL.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if apiErr := checkResponse(resp); apiErr != nil {
				return apiErr
			}
		}
		return errors.Wrap(err, "dial alerts feed")
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		alert := models.Alert{}
		err := conn.ReadJSON(&alert)
		if ctx.Err() != nil {
			return nil
		}
		if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read alerts feed")
		}

		onAlert(alert)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, data interface{}) error {
	resp, err := c.request(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}

	payload := envelope{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return errors.Wrapf(err, "decode %v response", path)
	}

	if data == nil || len(payload.Data) == 0 {
		return nil
	}

	return errors.Wrapf(json.Unmarshal(payload.Data, data), "decode %v data", path)
}

func (c *Client) request(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		buff := &bytes.Buffer{}
		if err := json.NewEncoder(buff).Encode(body); err != nil {
			return nil, err
		}
		reqBody = buff
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%v %v", method, path)
	}

	return resp, nil
}

// checkResponse turns a non 2xx response into an *APIError carrying the
// server's error message
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	payload := envelope{}
	json.NewDecoder(resp.Body).Decode(&payload)

	message := payload.Error
	if message == "" && len(payload.Errors) > 0 {
		message = strings.Join(payload.Errors, "; ")
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
