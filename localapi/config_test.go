// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package localapi

import (
	"net/http"
	"testing"

	"github.com/ZuhairORZaki/subscription-manager/httpclient"
)

func TestConfigAll(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, false)

	resp := request(t, http.MethodGet, ts.base+"/config", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /config status = %d, want 200", resp.StatusCode)
	}
	var all map[string]map[string]string
	decodeInto(t, resp, &all)

	if all["server"]["hostname"] != "server.example.com" {
		t.Errorf("server.hostname = %q, want server.example.com", all["server"]["hostname"])
	}
	if _, ok := all["foo"]; !ok {
		t.Error("file-only section foo missing from the listing")
	}
	// Stock sections show up even when the file leaves them empty.
	if all["rhsmcertd"]["certcheckinterval"] == "" {
		t.Error("rhsmcertd defaults missing from the listing")
	}
}

func TestConfigSection(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, false)

	resp := request(t, http.MethodGet, ts.base+"/config/server", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /config/server status = %d, want 200", resp.StatusCode)
	}
	var section map[string]string
	decodeInto(t, resp, &section)
	if section["prefix"] != "/candlepin" {
		t.Errorf("prefix = %q, want /candlepin", section["prefix"])
	}
	if section["port"] != "8443" {
		t.Errorf("port = %q, want 8443", section["port"])
	}
}

func TestConfigSectionUnknown(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, false)

	resp := request(t, http.MethodGet, ts.base+"/config/bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != msgInvalidSection {
		t.Errorf("error = %q, want %q", msg, msgInvalidSection)
	}
}

func TestConfigGet(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, false)

	resp := request(t, http.MethodGet, ts.base+"/config/server/hostname", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var doc map[string]string
	decodeInto(t, resp, &doc)
	if doc["value"] != "server.example.com" {
		t.Errorf("value = %q, want server.example.com", doc["value"])
	}
}

func TestConfigGetUnknownProperty(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, false)

	resp := request(t, http.MethodGet, ts.base+"/config/server/bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	want := "Specified property is not valid for section 'server'."
	if msg := errorMessage(t, resp); msg != want {
		t.Errorf("error = %q, want %q", msg, want)
	}
}

func TestConfigSet(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPut, ts.base+"/config/server/hostname",
		map[string]any{"value": "new.example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, errorMessage(t, resp))
	}

	value, ok := ts.conf.Section("server").Lookup("hostname")
	if !ok || value != "new.example.com" {
		t.Errorf("hostname after set = %q, %v", value, ok)
	}
}

func TestConfigSetNewProperty(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	// Sections must exist in the file; properties may be new.
	resp := request(t, http.MethodPut, ts.base+"/config/server/no_proxy",
		map[string]any{"value": "localhost"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, errorMessage(t, resp))
	}
}

func TestConfigSetRequiresRoot(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, false)

	resp := request(t, http.MethodPut, ts.base+"/config/server/hostname",
		map[string]any{"value": "new.example.com"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != msgMissingPermissions {
		t.Errorf("error = %q, want %q", msg, msgMissingPermissions)
	}
}

func TestConfigSetUnknownSection(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPut, ts.base+"/config/bogus/hostname",
		map[string]any{"value": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != msgInvalidSection {
		t.Errorf("error = %q, want %q", msg, msgInvalidSection)
	}
}

func TestConfigSetRejectsStructuredValue(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPut, ts.base+"/config/server/hostname",
		map[string]any{"value": []string{"a", "b"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != msgValidationFailed {
		t.Errorf("error = %q, want %q", msg, msgValidationFailed)
	}
}

func TestConfigSetAll(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPut, ts.base+"/config", map[string]any{
		"server.port":       8080,
		"server.insecure":   false,
		"rhsm.manage_repos": true,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", resp.StatusCode, errorMessage(t, resp))
	}

	for key, want := range map[string]string{"port": "8080", "insecure": "0"} {
		value, _ := ts.conf.Section("server").Lookup(key)
		if value != want {
			t.Errorf("server.%s = %q, want %q", key, value, want)
		}
	}
	if value, _ := ts.conf.Section("rhsm").Lookup("manage_repos"); value != "1" {
		t.Errorf("rhsm.manage_repos = %q, want 1", value)
	}
}

func TestConfigSetAllBareKey(t *testing.T) {
	ts := startServer(t, &httpclient.MockUEP{}, false, true)

	resp := request(t, http.MethodPut, ts.base+"/config",
		map[string]any{"server": "oops"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != msgSpecifyBoth {
		t.Errorf("error = %q, want %q", msg, msgSpecifyBoth)
	}
}
