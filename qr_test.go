package main

import (
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJoinURL(t *testing.T) {
	if got := joinURL("https://ships.example/", "abc"); got != "https://ships.example/abc" {
		t.Errorf("joinURL = %q", got)
	}
	if got := joinURL("http://localhost:8765", "abc"); got != "http://localhost:8765/abc" {
		t.Errorf("joinURL = %q", got)
	}
}

func TestQRHandler(t *testing.T) {
	w := newTestWorld(t, 41)
	adm := w.CreateShip("alice", "Nebula")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /qr/{id}", qrHandler(w, "https://ships.example"))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr/"+adm.ShipID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != qrSize || b.Dy() != qrSize {
		t.Errorf("image is %dx%d, want %d", b.Dx(), b.Dy(), qrSize)
	}

	for _, id := range []string{GenerateID(), "not-a-ship"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr/"+id, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET /qr/%s = %d, want 404", id, rec.Code)
		}
	}
}
