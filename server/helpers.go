package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Daskott/lifealert/server/auth"
	"github.com/Daskott/lifealert/server/models"
	"github.com/Daskott/lifealert/shared"
	"github.com/go-playground/validator"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func (s *Server) writeResponse(rw http.ResponseWriter, payLoad interface{}, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		s.logg.Error(payLoad)
	} else if statusCode >= http.StatusBadRequest {
		s.logg.Info(payLoad)
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func RegisterValidators(validate *validator.Validate) error {
	return validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		// if whitespace in password return false
		err := validate.Var(fl.Field().String(), "contains= ")
		if err == nil {
			return false
		}
		return len(fl.Field().String()) > 0
	})
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

func (s *Server) decodeAndVerifyAuthHeader(authHeaderValue string) DecodedJWT {
	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	return s.decodeAndVerifyToken(authHeaderList[1])
}

func (s *Server) decodeAndVerifyToken(token string) DecodedJWT {
	tokenClaims, err := auth.DecodeJWT(token, s.keyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	// validate that the user account still exists
	_, err = s.store.FindUserBy("id", tokenClaims.Subject)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

func decodedJWTFromContext(r *http.Request) DecodedJWT {
	decodedJWT, _ := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)
	return decodedJWT
}

// alertVisibilityFilter returns the user whose alerts the caller may see,
// or "" when the caller is an admin and may see every alert
func alertVisibilityFilter(decodedJWT DecodedJWT) string {
	if decodedJWT.Claims.IsAdmin {
		return ""
	}
	return decodedJWT.Claims.Subject
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func (s *Server) serve(server *http.Server) {
	s.logg.Infof("LifeAlert server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logg.Fatal(err)
	}
}

func (s *Server) cleanup(server *http.Server) {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	if s.stopListener != nil {
		s.stopListener()
	}

	s.hub.Close()

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		s.logg.Fatalf("LifeAlert server shutdown failed:%+s", err)
	}

	if err := s.store.Close(); err != nil {
		s.logg.Error(err)
	}

	s.logg.Infof("LifeAlert server stopped properly")
}

// sqliteFilePath extracts the db file from a sqlite DSN
// e.g "file:/data/lifealert.db?_journal_mode=WAL" -> "/data/lifealert.db".
// In-memory databases return "".
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		query, _ := url.ParseQuery(path[idx+1:])
		if query.Get("mode") == "memory" {
			return ""
		}
		path = path[:idx]
	}

	if path == "" || path == ":memory:" {
		return ""
	}

	return filepath.Clean(path)
}

func backupObjectName(storage shared.StorageConfig) string {
	prefix := strings.Trim(storage.Prefix, "/")
	if prefix == "" {
		return models.SQLITE_BACKUP_NAME
	}
	return prefix + "/" + models.SQLITE_BACKUP_NAME
}
