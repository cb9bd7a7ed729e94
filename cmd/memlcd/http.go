// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// maxText bounds the message accepted by POST /text.
const maxText = 4096

// newRouter returns the HTTP surface: the mirror stream and snapshot plus a
// few panel actions. Requests are logged at debug level.
func newRouter(a *app) http.Handler {
	r := mux.NewRouter().StrictSlash(false)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok\n")
	}).Methods(http.MethodGet)
	if a.mirror != nil {
		r.Handle("/stream", a.mirror).Methods(http.MethodGet)
		r.HandleFunc("/snapshot", a.mirror.ServeSnapshot).Methods(http.MethodGet, http.MethodHead)
	}
	r.HandleFunc("/clear", a.action("clear", func(*http.Request) error {
		return a.dev.Clear()
	})).Methods(http.MethodPost)
	r.HandleFunc("/vcom", a.action("vcom", func(*http.Request) error {
		return a.dev.ToggleVcom()
	})).Methods(http.MethodPost)
	r.HandleFunc("/text", a.handleText).Methods(http.MethodPost)

	access := a.log.WriterLevel(logrus.DebugLevel)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(a.log))(
		handlers.CombinedLoggingHandler(access, r))
}

// action wraps a panel operation. Panel errors are answered with 502 since
// the panel is the upstream of the request.
func (a *app) action(name string, f func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(r); err != nil {
			a.log.WithError(err).WithField("action", name).Error("Panel action failed")
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleText shows the "text" form value, or the raw body when there is no
// such value.
func (a *app) handleText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxText)
	var msg string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		msg = r.PostForm.Get("text")
	} else {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		msg = string(b)
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		http.Error(w, "empty text", http.StatusBadRequest)
		return
	}
	a.action("text", func(*http.Request) error {
		return a.showText(msg)
	})(w, r)
}
