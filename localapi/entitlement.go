// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package localapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/ZuhairORZaki/subscription-manager/cache"
	"github.com/ZuhairORZaki/subscription-manager/httpclient"
	"github.com/ZuhairORZaki/subscription-manager/notify"
	"github.com/ZuhairORZaki/subscription-manager/proxy"
)

const (
	msgInvalidDate = "Date entered is invalid. Date should be in YYYY-MM-DD format."
	msgPastDate    = "Past dates are not allowed"
)

// entitlementStatus is the verdict document the status endpoint
// serves and caches.
type entitlementStatus struct {
	Status         string                        `json:"status"`
	StatusID       string                        `json:"status_id"`
	Valid          bool                          `json:"valid"`
	CompliantUntil string                        `json:"compliant_until,omitempty"`
	Reasons        []httpclient.ComplianceReason `json:"reasons,omitempty"`
}

// statusLabel maps the server's status identifier to the display
// wording the whole product uses.
func statusLabel(id string) string {
	switch id {
	case "valid":
		return "Current"
	case "partial":
		return "Insufficient"
	case "invalid":
		return "Invalid"
	case "disabled":
		return "Disabled"
	default:
		return "Unknown"
	}
}

// handleEntitlementStatus answers GET /entitlement/status, optionally
// evaluated on a future date via ?on_date=YYYY-MM-DD. An unregistered
// system has the Unknown status rather than an error. The verdict is
// fetched fresh and cached; when the server is unreachable the cached
// verdict answers instead.
func (s *Server) handleEntitlementStatus(w http.ResponseWriter, r *http.Request) {
	if !s.registered() {
		writeJSON(w, http.StatusOK, entitlementStatus{Status: "Unknown", StatusID: "unknown"})
		return
	}

	onDate := r.URL.Query().Get("on_date")
	if onDate != "" {
		parsed, err := parseOnDate(onDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		onDate = parsed
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

	compliance, err := uep.GetCompliance(r.Context(), id.UUID, onDate)
	if err != nil {
		// A default query can still be answered from the last verdict.
		if onDate == "" {
			var cached entitlementStatus
			if hit, cacheErr := s.cache.Get(cache.KeyEntitlementStatus, &cached); cacheErr == nil && hit {
				cachedAt, _ := s.cache.CachedAt(cache.KeyEntitlementStatus)
				log.Debug("serving cached entitlement status",
					"cached_at", cachedAt, "error", err)
				writeJSON(w, http.StatusOK, cached)
				return
			}
		}
		writeUpstreamError(w, err)
		return
	}

	status := entitlementStatus{
		Status:         statusLabel(compliance.Status),
		StatusID:       compliance.Status,
		Valid:          compliance.Compliant,
		CompliantUntil: compliance.CompliantUntil,
		Reasons:        compliance.Reasons,
	}

	if onDate == "" {
		if err := s.cache.Set(cache.KeyEntitlementStatus, status); err != nil {
			log.Warn("failed to cache entitlement status", "error", err)
		}
	}
	if !status.Valid {
		notify.Post(r.Context(), s.Config.Notifier, notify.SubscriptionsInvalid())
	}

	writeJSON(w, http.StatusOK, status)
}

// parseOnDate accepts the YYYY-MM-DD form or full RFC 3339 and returns
// the RFC 3339 instant the server expects. Dates before today are
// rejected; the server cannot answer for the past.
func parseOnDate(raw string) (string, error) {
	var parsed time.Time
	var err error
	if parsed, err = time.Parse("2006-01-02", raw); err != nil {
		if parsed, err = time.Parse(time.RFC3339, raw); err != nil {
			return "", errors.New(msgInvalidDate)
		}
	}
	if beforeToday(parsed) {
		return "", errors.New(msgPastDate)
	}
	return parsed.UTC().Format(time.RFC3339), nil
}

func beforeToday(t time.Time) bool {
	now := time.Now()
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	day := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return day.Before(today)
}
