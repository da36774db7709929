package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZuhairORZaki/subscription-manager/identity"
	"github.com/ZuhairORZaki/subscription-manager/security"
)

// UEP is the slice of the entitlement server API the management
// surface consumes.
type UEP interface {
	GetStatus(ctx context.Context) (*ServerStatus, error)
	GetOwners(ctx context.Context, username string) ([]Owner, error)
	RegisterConsumer(ctx context.Context, opts RegisterOptions) (*Consumer, error)
	GetConsumer(ctx context.Context, uuid string) (*Consumer, error)
	GetCompliance(ctx context.Context, uuid, onDate string) (*Compliance, error)
	GetSyspurposeValidFields(ctx context.Context, owner string) (map[string][]string, error)
	UnregisterConsumer(ctx context.Context, uuid string) error
}

var _ UEP = (*Client)(nil)

// ServerStatus is the server's /status document.
type ServerStatus struct {
	Mode                string   `json:"mode"`
	Result              bool     `json:"result"`
	Version             string   `json:"version"`
	Release             string   `json:"release"`
	Standalone          bool     `json:"standalone"`
	TimeUTC             string   `json:"timeUTC"`
	ManagerCapabilities []string `json:"managerCapabilities"`
}

// Consumer is the server's record of a registered system.
type Consumer struct {
	UUID   string        `json:"uuid"`
	Name   string        `json:"name"`
	Owner  *Owner        `json:"owner,omitempty"`
	IDCert *IdentityCert `json:"idCert,omitempty"`
}

// Owner is the organization a consumer belongs to.
type Owner struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
}

// IdentityCert is the identity pair the server mints at registration,
// both halves PEM encoded.
type IdentityCert struct {
	Cert string `json:"cert"`
	Key  string `json:"key"`
}

// Compliance is the server's entitlement status verdict for a consumer.
type Compliance struct {
	Status         string             `json:"status"`
	Compliant      bool               `json:"compliant"`
	Date           string             `json:"date,omitempty"`
	CompliantUntil string             `json:"compliantUntil,omitempty"`
	Reasons        []ComplianceReason `json:"reasons,omitempty"`
}

// ComplianceReason explains one gap in coverage.
type ComplianceReason struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// RegisterOptions describes a registration request. Owner may be empty
// when the credentials resolve to exactly one organization; activation
// keys require it.
type RegisterOptions struct {
	Name              string
	Owner             string
	ActivationKeys    []string
	Facts             map[string]string
	InstalledProducts []identity.InstalledProduct
}

type consumerType struct {
	Label string `json:"label"`
}

type consumerPayload struct {
	Type              consumerType                `json:"type"`
	Name              string                      `json:"name"`
	Facts             map[string]string           `json:"facts,omitempty"`
	InstalledProducts []identity.InstalledProduct `json:"installedProducts,omitempty"`
}

// GetStatus fetches the server status document. No credentials needed.
func (c *Client) GetStatus(ctx context.Context) (*ServerStatus, error) {
	var status ServerStatus
	if err := c.request(ctx, http.MethodGet, "status", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetOwners lists the organizations the given portal user belongs to.
func (c *Client) GetOwners(ctx context.Context, username string) ([]Owner, error) {
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	var owners []Owner
	if err := c.request(ctx, http.MethodGet, "users/"+url.PathEscape(username)+"/owners", nil, nil, &owners); err != nil {
		return nil, err
	}
	return owners, nil
}

// RegisterConsumer creates a consumer on the server and returns its
// record, including the freshly minted identity pair.
func (c *Client) RegisterConsumer(ctx context.Context, opts RegisterOptions) (*Consumer, error) {
	if err := security.ValidateConsumerName(opts.Name, false); err != nil {
		return nil, err
	}
	if err := security.ValidateOwnerKey(opts.Owner, len(opts.ActivationKeys) == 0); err != nil {
		return nil, err
	}

	query := url.Values{}
	if opts.Owner != "" {
		query.Set("owner", opts.Owner)
	}
	if len(opts.ActivationKeys) > 0 {
		query.Set("activation_keys", strings.Join(opts.ActivationKeys, ","))
	}

	payload := consumerPayload{
		Type:              consumerType{Label: "system"},
		Name:              opts.Name,
		Facts:             opts.Facts,
		InstalledProducts: opts.InstalledProducts,
	}

	var consumer Consumer
	if err := c.request(ctx, http.MethodPost, "consumers", query, payload, &consumer); err != nil {
		return nil, err
	}
	log.Info("registered consumer", "uuid", consumer.UUID, "name", consumer.Name)
	return &consumer, nil
}

// GetConsumer fetches the consumer record for uuid.
func (c *Client) GetConsumer(ctx context.Context, uuid string) (*Consumer, error) {
	if err := security.ValidateUUID(uuid); err != nil {
		return nil, err
	}
	var consumer Consumer
	if err := c.request(ctx, http.MethodGet, "consumers/"+uuid, nil, nil, &consumer); err != nil {
		return nil, err
	}
	return &consumer, nil
}

// GetCompliance fetches the entitlement status verdict for uuid,
// evaluated on onDate when given (RFC 3339, empty for now).
func (c *Client) GetCompliance(ctx context.Context, uuid, onDate string) (*Compliance, error) {
	if err := security.ValidateUUID(uuid); err != nil {
		return nil, err
	}
	var query url.Values
	if onDate != "" {
		query = url.Values{"on_date": []string{onDate}}
	}
	var compliance Compliance
	if err := c.request(ctx, http.MethodGet, "consumers/"+uuid+"/compliance", query, nil, &compliance); err != nil {
		return nil, err
	}
	return &compliance, nil
}

// GetSyspurposeValidFields fetches the system purpose values the owner
// organization accepts, keyed by attribute name.
func (c *Client) GetSyspurposeValidFields(ctx context.Context, owner string) (map[string][]string, error) {
	if err := security.ValidateOwnerKey(owner, false); err != nil {
		return nil, err
	}
	var doc struct {
		SystemPurposeAttributes map[string][]string `json:"systemPurposeAttributes"`
	}
	if err := c.request(ctx, http.MethodGet, "owners/"+owner+"/system_purpose", nil, nil, &doc); err != nil {
		return nil, err
	}
	return doc.SystemPurposeAttributes, nil
}

// UnregisterConsumer deletes the consumer record for uuid.
func (c *Client) UnregisterConsumer(ctx context.Context, uuid string) error {
	if err := security.ValidateUUID(uuid); err != nil {
		return err
	}
	if err := c.request(ctx, http.MethodDelete, "consumers/"+uuid, nil, nil, nil); err != nil {
		return err
	}
	log.Info("unregistered consumer", "uuid", uuid)
	return nil
}

// request runs one API call and decodes the response into out when the
// status is a success. Error statuses become typed errors.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body, out any) error {
	opts := RequestOptions{
		Method: method,
		Path:   path,
		Query:  query,
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		opts.Body = data
	}

	resp, err := c.Execute(ctx, opts)
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return responseError(resp)
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode server response: %w", err)
	}
	return nil
}
