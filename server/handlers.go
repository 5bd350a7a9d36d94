package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Daskott/lifealert/server/alerting"
	"github.com/Daskott/lifealert/server/auth"
	"github.com/Daskott/lifealert/server/auth/key"
	"github.com/Daskott/lifealert/server/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
)

type ResponsePayload struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type SendAlertResponse struct {
	ResponsePayload
	*alerting.Outcome
}

type ContactsPayload struct {
	Phones string `json:"phones"`
	Emails string `json:"emails"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) createUser(rw http.ResponseWriter, r *http.Request) {
	data := models.User{}

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusBadRequest)
		return
	}

	errs := s.validate.Struct(data)
	if errs != nil {
		s.writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	// ids & roles are always assigned by the server
	data.ID = ""
	data.RoleID = ""

	_, err = s.store.FindUserBy("email", data.Email)
	if err == nil {
		s.writeResponse(rw, ResponsePayload{Error: "a user with that email already exists"}, http.StatusBadRequest)
		return
	}

	err = s.store.CreateUser(&data)
	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	data.Password = ""
	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: data})
}

func (s *Server) logIn(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]string)
	json.NewDecoder(r.Body).Decode(&data)

	passwordHash, err := s.store.FindUserPassword(data["email"])
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	if !auth.CheckPasswordHash(data["password"], passwordHash) {
		s.writeResponse(rw, ResponsePayload{Error: "email/password is invalid"}, http.StatusUnauthorized)
		return
	}

	user, err := s.store.FindUserBy("email", data["email"])
	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	isAdmin, err := s.store.IsAdmin(user)
	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	token, err := auth.EncodeJWT(auth.NewClaims(user.ID, user.Email, isAdmin), s.keyPair)
	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: map[string]string{"token": token, "user_id": user.ID}})
}

// Tokens are stateless, so signing out only needs the client to drop its token
func (s *Server) logOut(rw http.ResponseWriter, r *http.Request) {
	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Message: "signed out"})
}

func (s *Server) jwks(rw http.ResponseWriter, r *http.Request) {
	jwk, err := s.keyPair.JWK()
	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(jwk))
}

func (s *Server) findContacts(rw http.ResponseWriter, r *http.Request) {
	contactList, err := s.store.FindContactList(mux.Vars(r)["uid"])
	if errors.Is(err, models.ErrNoContactList) {
		json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: ContactsPayload{}})
		return
	}

	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    ContactsPayload{Phones: contactList.Phones, Emails: contactList.Emails},
	})
}

func (s *Server) updateContacts(rw http.ResponseWriter, r *http.Request) {
	data := ContactsPayload{}

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusBadRequest)
		return
	}

	err = s.store.UpsertContactList(&models.ContactList{
		UserID: mux.Vars(r)["uid"],
		Phones: data.Phones,
		Emails: data.Emails,
	})
	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Message: "Settings saved"})
}

func (s *Server) sendAlert(rw http.ResponseWriter, r *http.Request) {
	req := alerting.Request{}

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: "invalid request body"}, http.StatusBadRequest)
		return
	}

	decodedJWT := decodedJWTFromContext(r)
	if req.UserID != "" && req.UserID != decodedJWT.Claims.Subject && !decodedJWT.Claims.IsAdmin {
		s.writeResponse(rw, ResponsePayload{Error: "action is forbidden"}, http.StatusForbidden)
		return
	}

	outcome, err := s.alerts.Submit(r.Context(), req)
	if errors.Is(err, alerting.ErrMissingData) || errors.Is(err, alerting.ErrNoContacts) {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusBadRequest)
		return
	}

	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(SendAlertResponse{
		ResponsePayload: ResponsePayload{Success: true, Message: "Alerts sent"},
		Outcome:         outcome,
	})
}

func (s *Server) fetchAlerts(rw http.ResponseWriter, r *http.Request) {
	alerts, err := s.store.FetchAlerts(alertVisibilityFilter(decodedJWTFromContext(r)))
	if err != nil {
		s.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: alerts})
}

// alertsFeed streams newly inserted alerts over a websocket. Browsers can't set
// headers on websocket requests, so the token may also come as ?token=
func (s *Server) alertsFeed(rw http.ResponseWriter, r *http.Request) {
	decodedJWT := decodedJWTFromContext(r)
	if decodedJWT.ErrorMsg != "" && r.URL.Query().Get("token") != "" {
		decodedJWT = s.decodeAndVerifyToken(r.URL.Query().Get("token"))
	}

	if decodedJWT.ErrorMsg != "" {
		s.writeResponse(rw, ResponsePayload{Error: decodedJWT.ErrorMsg}, http.StatusUnauthorized)
		return
	}

	// Subscribe before the handshake completes so no alert inserted after
	// the client sees the upgrade is missed
	sub := s.hub.Subscribe()
	defer sub.Close()

	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.logg.Errorf("alertsFeed: %v", err)
		return
	}
	defer conn.Close()

	// Reader loop only exists to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	userFilter := alertVisibilityFilter(decodedJWT)
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case alert, ok := <-sub.C:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(feedWriteWait))
				return
			}

			if userFilter != "" && alert.UserID != userFilter {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(alert); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
