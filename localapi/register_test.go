// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package localapi

import (
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ZuhairORZaki/subscription-manager/cache"
	"github.com/ZuhairORZaki/subscription-manager/httpclient"
	"github.com/ZuhairORZaki/subscription-manager/messages"
)

// mintedConsumer builds the server response for a successful
// registration, identity certificate included.
func mintedConsumer(t *testing.T, uuid, name string) *httpclient.Consumer {
	t.Helper()
	certPEM, keyPEM := mintIdentity(t, uuid, name, time.Now().Add(24*time.Hour))
	return &httpclient.Consumer{
		UUID:  uuid,
		Name:  name,
		Owner: &httpclient.Owner{Key: "admin"},
		IDCert: &httpclient.IdentityCert{
			Cert: string(certPEM),
			Key:  string(keyPEM),
		},
	}
}

func TestRegisterWithCredentials(t *testing.T) {
	uep := &httpclient.MockUEP{Consumer: mintedConsumer(t, testUUID, "web1.example.com")}
	ts := startServer(t, uep, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"org":      "admin",
		"username": "duey",
		"password": "password",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.StatusCode, errorMessage(t, resp))
	}

	var consumer httpclient.Consumer
	decodeInto(t, resp, &consumer)
	if consumer.UUID != testUUID {
		t.Errorf("uuid = %q, want %q", consumer.UUID, testUUID)
	}
	if !ts.identity.Valid() {
		t.Error("identity store empty after registration")
	}

	if len(uep.RegisterCalls) != 1 {
		t.Fatalf("RegisterCalls = %d, want 1", len(uep.RegisterCalls))
	}
	opts := uep.RegisterCalls[0]
	if opts.Owner != "admin" {
		t.Errorf("Owner = %q, want admin", opts.Owner)
	}
	hostname, _ := os.Hostname()
	if opts.Name != hostname {
		t.Errorf("Name = %q, want the hostname %q", opts.Name, hostname)
	}

	basic, ok := ts.lastAuth.(httpclient.BasicAuth)
	if !ok || basic.Username != "duey" {
		t.Errorf("auth = %#v, want basic auth for duey", ts.lastAuth)
	}
}

func TestRegisterAutoDetectsOwner(t *testing.T) {
	uep := &httpclient.MockUEP{
		Consumer: mintedConsumer(t, testUUID, "web1.example.com"),
		Owners:   []httpclient.Owner{{Key: "snowwhite"}},
	}
	ts := startServer(t, uep, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"username": "duey",
		"password": "password",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.StatusCode, errorMessage(t, resp))
	}

	if len(uep.OwnersCalls) != 1 || uep.OwnersCalls[0] != "duey" {
		t.Errorf("OwnersCalls = %v, want [duey]", uep.OwnersCalls)
	}
	if uep.RegisterCalls[0].Owner != "snowwhite" {
		t.Errorf("Owner = %q, want snowwhite", uep.RegisterCalls[0].Owner)
	}
}

func TestRegisterMultipleOwners(t *testing.T) {
	uep := &httpclient.MockUEP{
		Owners: []httpclient.Owner{{Key: "admin"}, {Key: "snowwhite"}},
	}
	ts := startServer(t, uep, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"username": "duey",
		"password": "password",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	want := "User duey is member of more organizations, but no organization was selected."
	if msg := errorMessage(t, resp); msg != want {
		t.Errorf("error = %q, want %q", msg, want)
	}
	if len(uep.RegisterCalls) != 0 {
		t.Errorf("RegisterCalls = %d, want 0", len(uep.RegisterCalls))
	}
}

func TestRegisterNoOwners(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"username": "duey",
		"password": "password",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	want := "duey cannot register with any organizations."
	if msg := errorMessage(t, resp); msg != want {
		t.Errorf("error = %q, want %q", msg, want)
	}
}

func TestRegisterRequiresRoot(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, false)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"org": "admin", "username": "duey", "password": "password",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != msgMissingPermissions {
		t.Errorf("error = %q, want %q", msg, msgMissingPermissions)
	}
}

func TestRegisterAlreadyRegistered(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, true, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"org": "admin", "username": "duey", "password": "password",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != msgRegistered {
		t.Errorf("error = %q, want %q", msg, msgRegistered)
	}
}

func TestRegisterKeysRejectCredentials(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"org":             "admin",
		"username":        "duey",
		"password":        "password",
		"activation_keys": []string{"default_key"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	want := "Activation keys do not require user credentials."
	if msg := errorMessage(t, resp); msg != want {
		t.Errorf("error = %q, want %q", msg, want)
	}
}

func TestRegisterMissingCredentials(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"org":      "admin",
		"username": "duey",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != msgValidationFailed {
		t.Errorf("error = %q, want %q", msg, msgValidationFailed)
	}
}

func TestRegisterActivationKeys(t *testing.T) {
	uep := &httpclient.MockUEP{Consumer: mintedConsumer(t, testUUID, "web1.example.com")}
	ts := startServer(t, uep, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"org":             "admin",
		"activation_keys": []string{"default_key", "gpu_key"},
		"options":         map[string]any{"name": "web1.example.com"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.StatusCode, errorMessage(t, resp))
	}

	opts := uep.RegisterCalls[0]
	if len(opts.ActivationKeys) != 2 || opts.ActivationKeys[0] != "default_key" {
		t.Errorf("ActivationKeys = %v", opts.ActivationKeys)
	}
	if opts.Name != "web1.example.com" {
		t.Errorf("Name = %q, want web1.example.com", opts.Name)
	}
	// Keys authenticate themselves, so the connection carries nothing.
	if _, ok := ts.lastAuth.(httpclient.NoAuth); !ok {
		t.Errorf("auth = %#v, want no auth", ts.lastAuth)
	}
}

func TestRegisterActivationKeysRequireOrg(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"activation_keys": []string{"default_key"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); !strings.Contains(msg, "organization key can not be empty") {
		t.Errorf("error = %q, want the empty organization complaint", msg)
	}
}

func TestRegisterRejectsForeignConnectionOption(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"org":                "admin",
		"username":           "duey",
		"password":           "password",
		"connection_options": map[string]string{"host": "elsewhere.example.com"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	want := "host is not a valid proxy option."
	if msg := errorMessage(t, resp); msg != want {
		t.Errorf("error = %q, want %q", msg, want)
	}
}

func TestRegisterProxyOverride(t *testing.T) {
	uep := &httpclient.MockUEP{Consumer: mintedConsumer(t, testUUID, "web1.example.com")}
	ts := startServer(t, uep, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"org":      "admin",
		"username": "duey",
		"password": "password",
		"connection_options": map[string]string{
			"proxy_hostname": "proxy.example.com",
			"proxy_port":     "3128",
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.StatusCode, errorMessage(t, resp))
	}

	if ts.lastProxy.Hostname != "proxy.example.com" {
		t.Errorf("proxy hostname = %q, want proxy.example.com", ts.lastProxy.Hostname)
	}
	if ts.lastProxy.Port == nil || *ts.lastProxy.Port != 3128 {
		t.Errorf("proxy port = %v, want 3128", ts.lastProxy.Port)
	}
}

func TestRegisterUpstreamUnauthorized(t *testing.T) {
	uep := &httpclient.MockUEP{Error: &httpclient.RestError{Code: http.StatusUnauthorized}}
	ts := startServer(t, uep, false, true)

	resp := request(t, http.MethodPost, ts.base+"/register", map[string]any{
		"org":      "admin",
		"username": "duey",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != messages.Unauthorized {
		t.Errorf("error = %q, want %q", msg, messages.Unauthorized)
	}
	if ts.identity.Valid() {
		t.Error("identity stored despite the failed registration")
	}
}

func TestUnregister(t *testing.T) {
	uep := &httpclient.MockUEP{}
	ts := startServer(t, uep, true, true)

	if err := ts.cache.Set(cache.KeyEntitlementStatus, map[string]string{"status": "valid"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	resp := request(t, http.MethodPost, ts.base+"/unregister", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", resp.StatusCode, errorMessage(t, resp))
	}

	if len(uep.UnregisterCalls) != 1 || uep.UnregisterCalls[0] != testUUID {
		t.Errorf("UnregisterCalls = %v, want [%s]", uep.UnregisterCalls, testUUID)
	}
	if ts.identity.Valid() {
		t.Error("identity still present after unregister")
	}
	var cached map[string]string
	if hit, _ := ts.cache.Get(cache.KeyEntitlementStatus, &cached); hit {
		t.Error("entitlement status cache survived unregister")
	}

	// The consumer certificate authenticated the delete.
	certAuth, ok := ts.lastAuth.(httpclient.CertAuth)
	if !ok || certAuth.CertPath != ts.identity.CertPath() {
		t.Errorf("auth = %#v, want the consumer certificate", ts.lastAuth)
	}
}

func TestUnregisterGuardOrder(t *testing.T) {
	// An unprivileged caller gets the permission complaint, not the
	// registration state.
	ts := startServer(t, &httpclient.MockUEP{}, false, false)

	resp := request(t, http.MethodPost, ts.base+"/unregister", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != msgMissingPermissions {
		t.Errorf("error = %q, want %q", msg, msgMissingPermissions)
	}
}

func TestUnregisterNotRegistered(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPost, ts.base+"/unregister", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != msgNotRegistered {
		t.Errorf("error = %q, want %q", msg, msgNotRegistered)
	}
}

func TestUnregisterExpiredIdentity(t *testing.T) {
	uep := &httpclient.MockUEP{}
	ts := startServer(t, uep, true, true)

	certPEM, keyPEM := mintIdentity(t, testUUID, "db1.example.com", time.Now().Add(-time.Minute))
	if err := ts.identity.Write(certPEM, keyPEM); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	resp := request(t, http.MethodPost, ts.base+"/unregister", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != messages.ExpiredIDCert {
		t.Errorf("error = %q, want %q", msg, messages.ExpiredIDCert)
	}
	if len(uep.UnregisterCalls) != 0 {
		t.Errorf("UnregisterCalls = %v, want none", uep.UnregisterCalls)
	}
	// The identity stays for subscription-manager clean to remove.
	if !ts.identity.Valid() {
		t.Error("identity removed on a rejected unregister")
	}
}

func TestUnregisterConsumerGone(t *testing.T) {
	// A consumer already deleted on the server still unregisters
	// locally.
	uep := &httpclient.MockUEP{Error: &httpclient.RestError{Code: http.StatusGone}}
	ts := startServer(t, uep, true, true)

	resp := request(t, http.MethodPost, ts.base+"/unregister", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", resp.StatusCode, errorMessage(t, resp))
	}
	if ts.identity.Valid() {
		t.Error("identity still present after unregister")
	}
}

func TestUnregisterUpstreamFailure(t *testing.T) {
	uep := &httpclient.MockUEP{Error: &httpclient.RestError{Code: http.StatusInternalServerError}}
	ts := startServer(t, uep, true, true)

	resp := request(t, http.MethodPost, ts.base+"/unregister", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != messages.RemoteServer {
		t.Errorf("error = %q, want %q", msg, messages.RemoteServer)
	}
	if !ts.identity.Valid() {
		t.Error("identity deleted although the server refused the unregister")
	}
}

func TestUnregisterBadProxyOption(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, true, true)

	resp := request(t, http.MethodPost, ts.base+"/unregister", map[string]any{
		"proxy_options": map[string]string{"port": "8080"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	want := "port is not a valid proxy option."
	if msg := errorMessage(t, resp); msg != want {
		t.Errorf("error = %q, want %q", msg, want)
	}
}
