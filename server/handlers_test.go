package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Daskott/lifealert/server/auth/key"
	"github.com/Daskott/lifealert/server/logger"
	"github.com/Daskott/lifealert/server/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeyPairOnce sync.Once
	testKeyPair     *key.KeyPair
)

func keyPairForTests(t *testing.T) *key.KeyPair {
	testKeyPairOnce.Do(func() {
		privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.Nil(t, err)
		testKeyPair = &key.KeyPair{Kid: "test-kid", PrivateKey: privateKey, PublicKey: &privateKey.PublicKey}
	})
	return testKeyPair
}

type fakeSMS struct {
	mu sync.Mutex
	to []string
}

func (f *fakeSMS) SendSMS(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	if to == "bad" {
		return errors.New("invalid number")
	}
	return nil
}

type fakeEmail struct {
	mu sync.Mutex
	to []string
}

func (f *fakeEmail) SendEmail(ctx context.Context, to, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	return nil
}

type testResponse struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	AlertID   string          `json:"alert_id"`
	Delivered int             `json:"delivered"`
	Failed    int             `json:"failed"`
}

type testServer struct {
	*Server
	handler http.Handler
	sms     *fakeSMS
	email   *fakeEmail
}

func newTestServer(t *testing.T) *testServer {
	store, err := models.InitializeTestDb()
	require.Nil(t, err)
	t.Cleanup(func() { store.Close() })

	ts := &testServer{sms: &fakeSMS{}, email: &fakeEmail{}}
	ts.Server, err = NewServer(Options{
		Store:   store,
		KeyPair: keyPairForTests(t),
		SMS:     ts.sms,
		Email:   ts.email,
		Logger:  logger.NewNop(),
	})
	require.Nil(t, err)
	ts.handler = ts.Router()

	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, testResponse) {
	var reqBody bytes.Buffer
	if body != nil {
		require.Nil(t, json.NewEncoder(&reqBody).Encode(body))
	}

	req := httptest.NewRequest(method, path, &reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	res := testResponse{}
	require.Nil(t, json.NewDecoder(rec.Body).Decode(&res))

	return rec.Code, res
}

// signUp creates a user and returns its id & a fresh token
func (ts *testServer) signUp(t *testing.T, email string) (string, string) {
	code, res := ts.do(t, "POST", "/users", "", map[string]string{"email": email, "password": "s3cret!"})
	require.Equal(t, http.StatusOK, code, res.Error)

	code, res = ts.do(t, "POST", "/login", "", map[string]string{"email": email, "password": "s3cret!"})
	require.Equal(t, http.StatusOK, code, res.Error)

	data := map[string]string{}
	require.Nil(t, json.Unmarshal(res.Data, &data))

	return data["user_id"], data["token"]
}

func (ts *testServer) saveContacts(t *testing.T, uid, token, phones, emails string) {
	code, res := ts.do(t, "PUT", "/users/"+uid+"/contacts", token, ContactsPayload{Phones: phones, Emails: emails})
	require.Equal(t, http.StatusOK, code, res.Error)
}

func alertBody(lat, lng float64, uid string) map[string]interface{} {
	return map[string]interface{}{"lat": lat, "lng": lng, "userId": uid}
}

func TestSignUpAndLogIn(t *testing.T) {
	ts := newTestServer(t)

	uid, token := ts.signUp(t, "ada@x.com")
	assert.NotEmpty(t, uid)
	assert.NotEmpty(t, token)

	code, res := ts.do(t, "POST", "/users", "", map[string]string{"email": "ada@x.com", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, res.Success)

	code, _ = ts.do(t, "POST", "/users", "", map[string]string{"email": "not-an-email", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, "POST", "/users", "", map[string]string{"email": "bob@x.com", "password": "has space"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = ts.do(t, "POST", "/login", "", map[string]string{"email": "ada@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "email/password is invalid", res.Error)

	code, res = ts.do(t, "POST", "/login", "", map[string]string{"email": "nobody@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSendAlert(t *testing.T) {
	ts := newTestServer(t)
	uid, token := ts.signUp(t, "u1@x.com")
	ts.saveContacts(t, uid, token, "+15551111111", "a@x.com,b@x.com")

	code, res := ts.do(t, "POST", "/api/send-alert", token, alertBody(28.7041, 77.1025, uid))
	require.Equal(t, http.StatusOK, code, res.Error)

	assert.True(t, res.Success)
	assert.Equal(t, "Alerts sent", res.Message)
	assert.Equal(t, 3, res.Delivered)
	assert.Equal(t, 0, res.Failed)
	assert.NotEmpty(t, res.AlertID)
	assert.Equal(t, []string{"+15551111111"}, ts.sms.to)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, ts.email.to)

	alerts, err := ts.store.FetchAlerts(uid)
	require.Nil(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 28.7041, alerts[0].Latitude)
	assert.Equal(t, 77.1025, alerts[0].Longitude)
}

func TestSendAlertWithoutContacts(t *testing.T) {
	ts := newTestServer(t)
	uid, token := ts.signUp(t, "u2@x.com")

	code, res := ts.do(t, "POST", "/api/send-alert", token, alertBody(1, 2, uid))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, res.Success)
	assert.Equal(t, "No emergency contacts configured", res.Error)
	assert.Empty(t, ts.sms.to)
	assert.Empty(t, ts.email.to)
}

func TestSendAlertMissingData(t *testing.T) {
	ts := newTestServer(t)
	uid, token := ts.signUp(t, "u1@x.com")
	ts.saveContacts(t, uid, token, "+15551111111", "")

	cases := []map[string]interface{}{
		{"lng": 2, "userId": uid},
		{"lat": 1, "userId": uid},
		{"lat": 1, "lng": 2},
	}

	for _, body := range cases {
		code, res := ts.do(t, "POST", "/api/send-alert", token, body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Missing data", res.Error)
	}

	assert.Empty(t, ts.sms.to)
}

func TestSendAlertRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	uid, _ := ts.signUp(t, "u1@x.com")

	code, res := ts.do(t, "POST", "/api/send-alert", "", alertBody(1, 2, uid))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "no token provided", res.Error)

	code, _ = ts.do(t, "POST", "/api/send-alert", "garbage", alertBody(1, 2, uid))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSendAlertForAnotherUser(t *testing.T) {
	ts := newTestServer(t)
	adminID, adminToken := ts.signUp(t, "admin@x.com")
	basicID, basicToken := ts.signUp(t, "basic@x.com")
	ts.saveContacts(t, adminID, adminToken, "+15550000000", "")
	ts.saveContacts(t, basicID, basicToken, "+15551111111", "")

	code, _ := ts.do(t, "POST", "/api/send-alert", basicToken, alertBody(1, 2, adminID))
	assert.Equal(t, http.StatusForbidden, code)

	code, res := ts.do(t, "POST", "/api/send-alert", adminToken, alertBody(1, 2, basicID))
	assert.Equal(t, http.StatusOK, code, res.Error)
	assert.Equal(t, []string{"+15551111111"}, ts.sms.to)
}

func TestContacts(t *testing.T) {
	ts := newTestServer(t)
	uid, token := ts.signUp(t, "u1@x.com")
	otherID, _ := ts.signUp(t, "u2@x.com")

	code, res := ts.do(t, "GET", "/users/"+uid+"/contacts", token, nil)
	require.Equal(t, http.StatusOK, code)
	contacts := ContactsPayload{}
	require.Nil(t, json.Unmarshal(res.Data, &contacts))
	assert.Equal(t, ContactsPayload{}, contacts)

	ts.saveContacts(t, uid, token, "+15551111111, +15552222222", "a@x.com")
	ts.saveContacts(t, uid, token, "+15553333333", "")

	code, res = ts.do(t, "GET", "/users/"+uid+"/contacts", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Nil(t, json.Unmarshal(res.Data, &contacts))
	assert.Equal(t, ContactsPayload{Phones: "+15553333333"}, contacts)

	code, _ = ts.do(t, "GET", "/users/"+otherID+"/contacts", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do(t, "PUT", "/users/"+otherID+"/contacts", token, ContactsPayload{Phones: "+1"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestFetchAlertsVisibility(t *testing.T) {
	ts := newTestServer(t)
	adminID, adminToken := ts.signUp(t, "admin@x.com")
	basicID, basicToken := ts.signUp(t, "basic@x.com")
	ts.saveContacts(t, adminID, adminToken, "+15550000000", "")
	ts.saveContacts(t, basicID, basicToken, "+15551111111", "")

	code, _ := ts.do(t, "POST", "/api/send-alert", adminToken, alertBody(1, 1, adminID))
	require.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, "POST", "/api/send-alert", basicToken, alertBody(2, 2, basicID))
	require.Equal(t, http.StatusOK, code)

	alerts := []models.Alert{}

	code, res := ts.do(t, "GET", "/alerts", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.Nil(t, json.Unmarshal(res.Data, &alerts))
	assert.Len(t, alerts, 2)

	code, res = ts.do(t, "GET", "/alerts", basicToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.Nil(t, json.Unmarshal(res.Data, &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, basicID, alerts[0].UserID)
	assert.Equal(t, models.SENT_ALERT, alerts[0].Status)
}

func TestAlertsFeed(t *testing.T) {
	ts := newTestServer(t)
	uid, token := ts.signUp(t, "u1@x.com")
	ts.saveContacts(t, uid, token, "+15551111111", "")

	httpServer := httptest.NewServer(ts.handler)
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/alerts/feed?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Nil(t, err)
	defer conn.Close()

	code, res := ts.do(t, "POST", "/api/send-alert", token, alertBody(28.7041, 77.1025, uid))
	require.Equal(t, http.StatusOK, code)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	alert := models.Alert{}
	require.Nil(t, conn.ReadJSON(&alert))
	assert.Equal(t, res.AlertID, alert.ID)
	assert.Equal(t, uid, alert.UserID)
	assert.Equal(t, 28.7041, alert.Latitude)
}

func TestAlertsFeedRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	httpServer := httptest.NewServer(ts.handler)
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/alerts/feed"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NotNil(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJWKS(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("GET", "/jwks", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	jwks := key.JWKS{}
	require.Nil(t, json.NewDecoder(rec.Body).Decode(&jwks))
	assert.Len(t, jwks.Keys, 1)
}
