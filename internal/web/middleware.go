package web

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sweeney/irrigation-controller/internal/auth"
)

const realm = `Basic realm="irrigation", charset="UTF-8"`

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Printf("http: %s %s %d %s from %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond), r.RemoteAddr)
	})
}

// requireAuth rejects requests without valid HTTP Basic credentials. The
// response never says which part of the credentials was wrong.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || s.checker.Check(auth.Credentials{Username: user, Password: pass}) != nil {
			w.Header().Set("WWW-Authenticate", realm)
			s.fail(w, r, http.StatusUnauthorized, auth.ErrAuthentication.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
