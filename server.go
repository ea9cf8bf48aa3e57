package main

import (
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"

	"github.com/gorilla/websocket"
)

var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes configures HTTP routes. admin may be nil.
func SetupRoutes(hub *Hub, admin *Admin, cfg Config) *http.ServeMux {
	mux := http.NewServeMux()

	if cfg.ClientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(cfg.ClientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			// SPA: serve index.html for root and ship join links
			if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
				http.ServeFile(w, r, filepath.Join(cfg.ClientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		}))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /qr/{id}", qrHandler(hub.world, cfg.PublicURL))

	if admin != nil {
		mux.HandleFunc("POST /admin/login", admin.handleLogin)
		mux.HandleFunc("GET /admin/stats", admin.requireAdmin(admin.handleStats))
		mux.HandleFunc("GET /admin/ships", admin.requireAdmin(admin.handleShips))
		mux.HandleFunc("GET /admin/snapshot", admin.requireAdmin(admin.handleSnapshot))
	}

	// WebSocket endpoint; ?enc=msgpack selects binary state frames
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			hub.log.Warnw("connection rejected", "ip", ip)
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Infow("upgrade error", "ip", ip, "err", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip, r.URL.Query().Get("enc") == "msgpack")
		hub.Register(client)
		client.log.Debugw("connection accepted", "binary", client.binary)

		go client.WritePump()
		go client.ReadPump()
	})

	return mux
}
