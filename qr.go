package main

import (
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// joinURL is the deep link the static client opens to join a ship
func joinURL(publicURL, shipID string) string {
	return strings.TrimRight(publicURL, "/") + "/" + shipID
}

// qrHandler renders a PNG QR code that links to a ship's join page
func qrHandler(world *World, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !uuidPathRe.MatchString("/"+id) || !world.HasShip(id) {
			http.NotFound(w, r)
			return
		}
		png, err := qrcode.Encode(joinURL(publicURL, id), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	}
}
