// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package localapi

import (
	"net/http"

	"github.com/ZuhairORZaki/subscription-manager/proxy"
)

// handleConsumer answers GET /consumer with the local identity. An
// unregistered system reports an empty uuid, not an error.
func (s *Server) handleConsumer(w http.ResponseWriter, r *http.Request) {
	if !s.registered() {
		writeJSON(w, http.StatusOK, map[string]string{"uuid": ""})
		return
	}
	id, err := s.identity.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"uuid": id.UUID,
		"name": id.Name,
	})
}

// handleConsumerOrg answers GET /consumer/org with the organization
// the system is registered in, straight from the server's consumer
// record.
func (s *Server) handleConsumerOrg(w http.ResponseWriter, r *http.Request) {
	if !s.registered() {
		writeError(w, http.StatusConflict, msgNotRegistered)
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
		writeError(w, http.StatusBadGateway, "The server did not report an organization.")
		return
	}
	writeJSON(w, http.StatusOK, consumer.Owner)
}
