package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Daskott/lifealert/colors"
	"github.com/Daskott/lifealert/server/auth"
	"github.com/gorilla/mux"
)

type RequestContextKey string

type DecodedJWT struct {
	Claims   *auth.LifeAlertTokenClaims
	ErrorMsg string
}

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades pass through the logging middleware
func (r *ResponseWriterWithStatus) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not implement http.Hijacker")
	}
	r.Status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         200,
		}

		defer func() {
			s.logg.Infof("%v %v %v %v",
				r.Method,
				r.URL.Path,
				colors.HTTPStatus(responseWriter.Status),
				colors.Yellow(fmt.Sprintf("[%v]", time.Since(start))))
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

func (s *Server) initialContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")

		// Add decoded token to request context
		ctx := context.WithValue(r.Context(), RequestContextKey("decodedJWT"), s.decodeAndVerifyAuthHeader(r.Header.Get("Authorization")))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) protectedRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodedJWT := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)
		if decodedJWT.ErrorMsg != "" {
			s.writeResponse(w, ResponsePayload{Error: decodedJWT.ErrorMsg}, http.StatusUnauthorized)
			return
		}

		// client is only able to view/update their own contacts
		uid := mux.Vars(r)["uid"]
		if uid != "" && uid != decodedJWT.Claims.Subject {
			s.writeResponse(w, ResponsePayload{Error: "action is forbidden"}, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
