package httpclient

import "context"

// MockUEP is a canned implementation of UEP for testing.
type MockUEP struct {
	Status      *ServerStatus
	Owners      []Owner
	Consumer    *Consumer
	Compliance  *Compliance
	ValidFields map[string][]string
	Error       error

	OwnersCalls     []string
	RegisterCalls   []RegisterOptions
	ComplianceCalls []string
	ComplianceDates []string
	UnregisterCalls []string
}

// GetStatus returns the configured status or error.
func (m *MockUEP) GetStatus(ctx context.Context) (*ServerStatus, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Status, nil
}

// GetOwners records the call and returns the configured owner list or
// error.
func (m *MockUEP) GetOwners(ctx context.Context, username string) ([]Owner, error) {
	m.OwnersCalls = append(m.OwnersCalls, username)
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Owners, nil
}

// RegisterConsumer records the call and returns the configured
// consumer or error.
func (m *MockUEP) RegisterConsumer(ctx context.Context, opts RegisterOptions) (*Consumer, error) {
	m.RegisterCalls = append(m.RegisterCalls, opts)
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Consumer, nil
}

// GetConsumer returns the configured consumer or error.
func (m *MockUEP) GetConsumer(ctx context.Context, uuid string) (*Consumer, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Consumer, nil
}

// GetCompliance records the call and returns the configured verdict or
// error.
func (m *MockUEP) GetCompliance(ctx context.Context, uuid, onDate string) (*Compliance, error) {
	m.ComplianceCalls = append(m.ComplianceCalls, uuid)
	m.ComplianceDates = append(m.ComplianceDates, onDate)
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Compliance, nil
}

// GetSyspurposeValidFields returns the configured field map or error.
func (m *MockUEP) GetSyspurposeValidFields(ctx context.Context, owner string) (map[string][]string, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	return m.ValidFields, nil
}

// UnregisterConsumer records the call and returns the configured
// error.
func (m *MockUEP) UnregisterConsumer(ctx context.Context, uuid string) error {
	m.UnregisterCalls = append(m.UnregisterCalls, uuid)
	return m.Error
}
