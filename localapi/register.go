// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package localapi

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ZuhairORZaki/subscription-manager/cache"
	"github.com/ZuhairORZaki/subscription-manager/httpclient"
	"github.com/ZuhairORZaki/subscription-manager/identity"
	"github.com/ZuhairORZaki/subscription-manager/security"
)

type registerRequest struct {
	Org               string            `json:"org"`
	Username          string            `json:"username"`
	Password          string            `json:"password"`
	ActivationKeys    []string          `json:"activation_keys"`
	Options           registerOptions   `json:"options"`
	ConnectionOptions map[string]string `json:"connection_options"`
}

type registerOptions struct {
	// Name is the consumer name, the machine's hostname when empty.
	Name string `json:"name"`
}

// handleRegister answers POST /register. The request registers with
// either portal credentials or activation keys; the returned consumer
// record includes the organization the system landed in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.ensureRoot(w) {
		return
	}
	if s.registered() {
		writeError(w, http.StatusConflict, msgRegistered)
		return
	}

	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	proxyInfo, err := proxyOnlyInfo(req.ConnectionOptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := req.Options.Name
	if name == "" {
		if name, err = os.Hostname(); err != nil {
			writeError(w, http.StatusInternalServerError, "Unable to determine a consumer name.")
			return
		}
	}

	withKeys := len(req.ActivationKeys) > 0
	if withKeys && (req.Username != "" || req.Password != "") {
		writeError(w, http.StatusBadRequest, "Activation keys do not require user credentials.")
		return
	}
	if !withKeys && (req.Username == "" || req.Password == "") {
		writeError(w, http.StatusBadRequest, msgValidationFailed)
		return
	}
	if err := security.ValidateOwnerKey(req.Org, !withKeys); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	auth := httpclient.Auth(httpclient.NoAuth{})
	if !withKeys {
		auth = httpclient.BasicAuth{Username: req.Username, Password: req.Password}
	}
	uep, err := s.prepareConnection(proxyInfo, auth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	org := req.Org
	if org == "" {
		if org = s.determineOwner(w, r, uep, req.Username); org == "" {
			return
		}
	}

	opts := httpclient.RegisterOptions{
		Name:           name,
		Owner:          org,
		ActivationKeys: req.ActivationKeys,
	}
	if s.Config.Facts != nil {
		opts.Facts = s.Config.Facts.Facts(r.Context())
	}
	if s.Config.ProductDir != "" {
		products, err := identity.ScanProducts(s.Config.ProductDir)
		if err != nil {
			log.Warn("failed to scan product certificates", "dir", s.Config.ProductDir, "error", err)
		}
		opts.InstalledProducts = products
	}

	consumer, err := uep.RegisterConsumer(r.Context(), opts)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	if consumer.IDCert == nil {
		writeError(w, http.StatusBadGateway, "The server did not return an identity certificate.")
		return
	}
	if err := s.identity.Write([]byte(consumer.IDCert.Cert), []byte(consumer.IDCert.Key)); err != nil {
		log.Error("failed to store the consumer identity", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if opts.Facts != nil {
		if err := s.cache.Set(cache.KeyUploadedFacts, opts.Facts); err != nil {
			log.Warn("failed to record uploaded facts", "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, consumer)
}

// determineOwner resolves the organization from the portal user's
// owner list when exactly one exists. The empty return means the
// response has been written.
func (s *Server) determineOwner(w http.ResponseWriter, r *http.Request, uep httpclient.UEP, username string) string {
	owners, err := uep.GetOwners(r.Context(), username)
	if err != nil {
		writeUpstreamError(w, err)
		return ""
	}
	switch len(owners) {
	case 0:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("%s cannot register with any organizations.", username))
		return ""
	case 1:
		return owners[0].Key
	default:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("User %s is member of more organizations, but no organization was selected.", username))
		return ""
	}
}

type unregisterRequest struct {
	ProxyOptions map[string]string `json:"proxy_options"`
}

// handleUnregister answers POST /unregister, deleting the consumer on
// the server and cleaning up the local identity and caches. A consumer
// already gone on the server still unregisters locally.
func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	if !s.ensureRegistered(w) {
		return
	}

	var req unregisterRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	proxyInfo, err := proxyOnlyInfo(req.ProxyOptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, ok := s.liveIdentity(w)
	if !ok {
		return
	}

	uep, err := s.prepareConnection(proxyInfo, s.connectionAuth("", ""))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := uep.UnregisterConsumer(r.Context(), id.UUID); err != nil {
		var restErr *httpclient.RestError
		if errors.As(err, &restErr) && restErr.Code == http.StatusGone {
			log.Debug("consumer already deleted on the server", "uuid", id.UUID)
		} else {
			writeUpstreamError(w, err)
			return
		}
	}

	if err := s.identity.Delete(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.cache.Clear(); err != nil {
		log.Warn("failed to clear caches", "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
