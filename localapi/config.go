// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package localapi

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/ZuhairORZaki/subscription-manager/config"
)

// Canonical configuration endpoint messages.
const (
	msgSpecifyBoth    = "You have to specify both the section and the property."
	msgInvalidSection = "Specified section is not valid."
)

func msgInvalidProperty(section string) string {
	return fmt.Sprintf("Specified property is not valid for section '%s'.", section)
}

func (s *Server) knownSection(name string) bool {
	return slices.Contains(s.conf.KnownSections(), name)
}

// handleConfigAll answers GET /config with every known section and its
// effective values, stock defaults included.
func (s *Server) handleConfigAll(w http.ResponseWriter, r *http.Request) {
	all := make(map[string]map[string]string)
	for _, name := range s.conf.KnownSections() {
		all[name] = s.conf.Section(name).Map()
	}
	writeJSON(w, http.StatusOK, all)
}

// handleConfigSection answers GET /config/{section} with the section's
// effective values.
func (s *Server) handleConfigSection(w http.ResponseWriter, r *http.Request) {
	section := r.PathValue("section")
	if !s.knownSection(section) {
		writeError(w, http.StatusBadRequest, msgInvalidSection)
		return
	}
	writeJSON(w, http.StatusOK, s.conf.Section(section).Map())
}

// handleConfigGet answers GET /config/{section}/{property} with the
// effective value.
func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	section := r.PathValue("section")
	property := r.PathValue("property")
	if !s.knownSection(section) {
		writeError(w, http.StatusBadRequest, msgInvalidSection)
		return
	}
	value, ok := s.conf.Section(section).Lookup(property)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidProperty(section))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": value})
}

// handleConfigSet answers PUT /config/{section}/{property}, writing
// one value and persisting the file.
func (s *Server) handleConfigSet(w http.ResponseWriter, r *http.Request) {
	if !s.ensureRoot(w) {
		return
	}

	var body struct {
		Value any `json:"value"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	value, ok := configValue(body.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, msgValidationFailed)
		return
	}

	section := r.PathValue("section")
	property := r.PathValue("property")
	if err := s.setProperty(section+"."+property, value); err != nil {
		writeConfigError(w, err, section)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": value})
}

// handleConfigSetAll answers PUT /config with a map of dotted keys,
// writing every value before reporting the first structural problem.
func (s *Server) handleConfigSetAll(w http.ResponseWriter, r *http.Request) {
	if !s.ensureRoot(w) {
		return
	}

	var body map[string]any
	if !decodeBody(w, r, &body) {
		return
	}

	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value, ok := configValue(body[key])
		if !ok {
			writeError(w, http.StatusBadRequest, msgValidationFailed)
			return
		}
		if err := s.setProperty(key, value); err != nil {
			section, _, _ := strings.Cut(key, ".")
			writeConfigError(w, err, section)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// setProperty writes one dotted key and reapplies the logging
// configuration when the logging section changed.
func (s *Server) setProperty(key, value string) error {
	if err := s.conf.SetProperty(key, value); err != nil {
		return err
	}
	if section, _, _ := strings.Cut(key, "."); section == "logging" {
		s.conf.ApplyLogging()
	}
	return nil
}

// writeConfigError maps a configuration error to its canonical text.
func writeConfigError(w http.ResponseWriter, err error, section string) {
	switch {
	case errors.Is(err, config.ErrNoProperty):
		writeError(w, http.StatusBadRequest, msgSpecifyBoth)
	case errors.Is(err, config.ErrUnknownSection):
		writeError(w, http.StatusBadRequest, msgInvalidSection)
	default:
		var propErr *config.UnknownPropertyError
		if errors.As(err, &propErr) {
			writeError(w, http.StatusBadRequest, msgInvalidProperty(propErr.Section))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// configValue renders a JSON scalar the way rhsm.conf stores it.
// Booleans become the 1/0 the file format uses; anything structured is
// rejected.
func configValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		if t {
			return "1", true
		}
		return "0", true
	default:
		return "", false
	}
}
