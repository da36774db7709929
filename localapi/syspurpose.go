// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package localapi

import (
	"net/http"
	"path/filepath"

	"github.com/ZuhairORZaki/subscription-manager/cache"
	"github.com/ZuhairORZaki/subscription-manager/fileutil"
	"github.com/ZuhairORZaki/subscription-manager/proxy"
)

// readSyspurpose loads the system purpose store. A missing file is an
// empty purpose.
func (s *Server) readSyspurpose() (map[string]any, error) {
	contents := make(map[string]any)
	if err := fileutil.ReadJSON(s.syspurpose, &contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// handleSyspurposeGet answers GET /syspurpose with the store contents.
func (s *Server) handleSyspurposeGet(w http.ResponseWriter, r *http.Request) {
	contents, err := s.readSyspurpose()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, contents)
}

// handleSyspurposeSet answers PUT /syspurpose. Values merge into the
// store; a null or empty value unsets its field. The response is the
// store after the write.
func (s *Server) handleSyspurposeSet(w http.ResponseWriter, r *http.Request) {
	if !s.ensureRoot(w) {
		return
	}

	var values map[string]any
	if !decodeBody(w, r, &values) {
		return
	}

	contents, err := s.readSyspurpose()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for key, value := range values {
		if value == nil || value == "" {
			delete(contents, key)
			continue
		}
		contents[key] = value
	}

	if err := fileutil.EnsureDir(filepath.Dir(s.syspurpose)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := fileutil.AtomicWriteJSON(s.syspurpose, contents); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info("system purpose updated", "fields", len(values))
	writeJSON(w, http.StatusOK, contents)
}

// handleSyspurposeValidFields answers GET /syspurpose/valid_fields
// with the values the owner organization accepts. The server's answer
// is cached; the cache answers until it expires.
func (s *Server) handleSyspurposeValidFields(w http.ResponseWriter, r *http.Request) {
	if !s.registered() {
		writeError(w, http.StatusConflict, msgNotRegistered)
		return
	}

	var fields map[string][]string
	if hit, err := s.cache.Get(cache.KeyValidFields, &fields); err == nil && hit {
		writeJSON(w, http.StatusOK, fields)
		return
	}

	id, ok := s.liveIdentity(w)
	if !ok {
		return
	}
	uep, err := s.prepareConnection(proxy.Info{}, s.connectionAuth("", ""))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	consumer, err := uep.GetConsumer(r.Context(), id.UUID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if consumer.Owner == nil {
		writeError(w, http.StatusBadGateway, "Unable to get valid system purpose fields.")
		return
	}
	fields, err = uep.GetSyspurposeValidFields(r.Context(), consumer.Owner.Key)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if fields == nil {
		writeError(w, http.StatusBadGateway, "Unable to get valid system purpose fields.")
		return
	}

	if err := s.cache.Set(cache.KeyValidFields, fields); err != nil {
		log.Warn("failed to cache valid fields", "error", err)
	}
	writeJSON(w, http.StatusOK, fields)
}
