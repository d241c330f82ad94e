package appctx

import (
	"net/http"

	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/go-chi/chi/v5"
)

// Router assembles the top-level mux: public download routes
// (rate-limited), the admin surface mounted under /admin, and a
// static asset directory. Kept separate from New so tests can build
// an AppContext without necessarily exercising HTTP routing.
//
// hwerr.Recover wraps the whole mux so a panic anywhere, in the
// public download path or the admin API, is logged and converted to a
// 500 instead of unwinding across the request boundary (§7).
func (a *AppContext) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(hwerr.Recover(a.Logger))

	r.Group(func(pub chi.Router) {
		pub.Use(a.RateLimiter.Middleware)
		a.DownloadHandler.Routes(pub)
	})

	assetsDir := a.Config.DataDir + "/assets"
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(assetsDir))))

	r.Mount("/admin", a.AdminServer.Router())

	return r
}
