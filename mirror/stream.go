// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mirror

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"mime"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"sync"
)

// bufferPool stores reusable []byte instances.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return []byte(nil)
	},
}

type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

func (m *Mirror) formatFromQuery(values url.Values) (ImageFormat, error) {
	if value := values.Get("format"); value != "" {
		return ParseImageFormat(value)
	}
	return m.defaultFormat, nil
}

// encodeLocked returns the current frame in format f, encoding it once per
// frame and format.
func (m *Mirror) encodeLocked(f ImageFormat) ([]byte, error) {
	if encoded, ok := m.snapshot[f]; ok {
		return encoded, nil
	}
	buf := bytes.NewBuffer(bufferPool.Get().([]byte)[:0])
	switch f {
	case PNG:
		if err := pngEncoder.Encode(buf, m.frame); err != nil {
			return nil, err
		}
	case JPEG:
		if err := jpeg.Encode(buf, m.frame, &jpeg.Options{Quality: 90}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("mirror: unhandled image format %s", f)
	}
	m.snapshot[f] = buf.Bytes()
	return buf.Bytes(), nil
}

// grab returns a pooled copy of the encoded current frame.
func (m *Mirror) grab(f ImageFormat) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	encoded, err := m.encodeLocked(f)
	if err != nil {
		return nil, err
	}
	return append(bufferPool.Get().([]byte)[:0], encoded...), nil
}

func (m *Mirror) closeBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		m.log.WithError(err).Warn("closing request body failed")
	}
}

// ServeHTTP handles HTTP GET requests and streams the frames as a
// multipart/x-mixed-replace response until the client goes away or Halt is
// called. Clients can pick the format with "?format=png" or "?format=jpeg".
func (m *Mirror) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.closeBody(r)
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	f, err := m.formatFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pw := newPartWriter(w)
	w.Header().Set("Content-Type",
		mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{
			"boundary": pw.boundary,
		}))

	c := &client{
		refresh:   make(chan struct{}, 1),
		terminate: make(chan struct{}, 1),
	}
	m.mu.Lock()
	m.clients[c] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.clients, c)
		m.mu.Unlock()
	}()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", f.mimeType())
	header.Set("Content-Transfer-Encoding", "binary")

	for {
		payload, err := m.grab(f)
		if err != nil {
			m.log.WithError(err).WithField("format", f).Error("encoding frame failed")
			return
		}
		err = pw.writePart(header, payload)
		//lint:ignore SA6002 payload is []byte and thus pointer-like
		bufferPool.Put(payload)
		if err != nil {
			// A broken stream can't carry an error message, drop the client.
			m.log.WithError(err).WithField("remote", r.RemoteAddr).Debug("stream client gone")
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		select {
		case <-c.refresh:
		case <-c.terminate:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// ServeSnapshot answers with the current frame as a single image.
func (m *Mirror) ServeSnapshot(w http.ResponseWriter, r *http.Request) {
	m.closeBody(r)
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	f, err := m.formatFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload, err := m.grab(f)
	if err != nil {
		m.log.WithError(err).WithField("format", f).Error("encoding frame failed")
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	defer bufferPool.Put(payload)
	w.Header().Set("Content-Type", f.mimeType())
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(payload); err != nil {
		m.log.WithError(err).Debug("writing snapshot failed")
	}
}
