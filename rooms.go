/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/impostor/catalog"
	"github.com/Seednode/impostor/room"
)

const qrSize = 320

type categorySummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Words int    `json:"words"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_, err = w.Write(data)

	return err
}

func serveRoom(cfg *Config, svc *room.Service, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		summary, ok := svc.Lookup(p.ByName("code"))
		if !ok {
			if err := writeJSON(cfg, w, http.StatusNotFound, map[string]string{"error": "room not found"}); err != nil {
				errs <- err
			}

			return
		}

		if err := writeJSON(cfg, w, http.StatusOK, summary); err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Room %s to %s in %s",
			summary.Code,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// joinURL is the link players open to join code, as seen by the requester.
func joinURL(cfg *Config, r *http.Request, code string) string {
	scheme := cfg.scheme()
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"room": {code}}.Encode(),
	}

	return u.String()
}

func serveRoomQR(cfg *Config, svc *room.Service, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		summary, ok := svc.Lookup(p.ByName("code"))
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)

			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, summary.Code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: QR code for %s (%s) to %s in %s",
			summary.Code,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveCategories(cfg *Config, cat *catalog.Catalog, errs chan<- error) httprouter.Handle {
	summaries := lo.Map(cat.Categories(), func(c catalog.Category, _ int) categorySummary {
		return categorySummary{ID: c.ID, Name: c.Name, Words: len(c.Words)}
	})

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Cache-Control", "public, max-age=3600")

		if err := writeJSON(cfg, w, http.StatusOK, summaries); err != nil {
			errs <- err
		}
	}
}

func registerRooms(cfg *Config, mux *httprouter.Router, svc *room.Service, cat *catalog.Catalog, errs chan<- error) {
	mux.GET(cfg.prefix+"/rooms/:code", serveRoom(cfg, svc, errs))
	mux.GET(cfg.prefix+"/rooms/:code/qr", serveRoomQR(cfg, svc, errs))
	mux.GET(cfg.prefix+"/categories", serveCategories(cfg, cat, errs))
}
