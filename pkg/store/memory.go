package store

import (
	"context"
	"slices"
	"sync"

	"github.com/regexflow/regexflow/pkg/types"
)

// Memory is an in-memory Store for tests and the embedded default.
type Memory struct {
	mu sync.RWMutex

	templates    map[string]types.Template
	templateIDs  []string // creation order
	audit        []types.AuditEntry
	messages     map[string]types.MessageLog
	messageIDs   []string
	transactions map[string]types.ParsedTransaction
	txnIDs       []string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		templates:    make(map[string]types.Template),
		messages:     make(map[string]types.MessageLog),
		transactions: make(map[string]types.ParsedTransaction),
	}
}

func (m *Memory) CreateTemplate(_ context.Context, t types.Template) (types.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.Version = 1
	m.templates[t.ID] = t
	m.templateIDs = append(m.templateIDs, t.ID)
	return t, nil
}

func (m *Memory) UpdateTemplate(_ context.Context, t types.Template) (types.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.templates[t.ID]
	if !ok {
		return types.Template{}, ErrNotFound
	}
	if stored.Version != t.Version {
		return types.Template{}, ErrVersionConflict
	}
	t.Version++
	m.templates[t.ID] = t
	return t, nil
}

func (m *Memory) GetTemplate(_ context.Context, id string) (types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[id]
	if !ok {
		return types.Template{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) ListTemplatesByStatus(_ context.Context, status types.TemplateStatus) ([]types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collectTemplates(func(t types.Template) bool { return t.Status == status }), nil
}

func (m *Memory) ListTemplatesByMaker(_ context.Context, makerID string) ([]types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collectTemplates(func(t types.Template) bool { return t.MakerID == makerID }), nil
}

func (m *Memory) ListReviewedTemplates(_ context.Context) ([]types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collectTemplates(func(t types.Template) bool {
		return slices.Contains(reviewedStatuses, t.Status)
	}), nil
}

func (m *Memory) FindDuplicatePattern(_ context.Context, pattern, excludeID string) (types.Template, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.templateIDs {
		t := m.templates[id]
		if t.ID == excludeID {
			continue
		}
		if t.Pattern == pattern && slices.Contains(duplicateStatuses, t.Status) {
			return t, true, nil
		}
	}
	return types.Template{}, false, nil
}

func (m *Memory) AppendAudit(_ context.Context, e types.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audit = append(m.audit, e)
	return nil
}

func (m *Memory) ListAuditByTemplate(_ context.Context, templateID string) ([]types.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		if m.audit[i].TemplateID == templateID {
			out = append(out, m.audit[i])
		}
	}
	return out, nil
}

func (m *Memory) SaveMessageLog(_ context.Context, msg types.MessageLog) (types.MessageLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.messages[msg.ID]; !ok {
		m.messageIDs = append(m.messageIDs, msg.ID)
	}
	m.messages[msg.ID] = msg
	return msg, nil
}

func (m *Memory) GetMessageLog(_ context.Context, id string) (types.MessageLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return types.MessageLog{}, ErrNotFound
	}
	return msg, nil
}

func (m *Memory) FindMessageLog(_ context.Context, uploaderID, text string) (types.MessageLog, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.messageIDs {
		msg := m.messages[id]
		if msg.UploaderID == uploaderID && msg.Text == text {
			return msg, true, nil
		}
	}
	return types.MessageLog{}, false, nil
}

func (m *Memory) ListUnparsedMessages(_ context.Context) ([]types.MessageLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.MessageLog
	for _, id := range m.messageIDs {
		msg := m.messages[id]
		if msg.Status == types.ParseNoMatch {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *Memory) DeleteMessageLog(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.messages[id]; !ok {
		return ErrNotFound
	}
	delete(m.messages, id)
	m.messageIDs = slices.DeleteFunc(m.messageIDs, func(s string) bool { return s == id })
	return nil
}

func (m *Memory) SaveTransaction(_ context.Context, txn types.ParsedTransaction) (types.ParsedTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[txn.ID]; !ok {
		m.txnIDs = append(m.txnIDs, txn.ID)
	}
	m.transactions[txn.ID] = txn
	return txn, nil
}

func (m *Memory) FindTransactionByMessage(_ context.Context, messageLogID string) (types.ParsedTransaction, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.txnIDs {
		txn := m.transactions[id]
		if txn.MessageLogID == messageLogID {
			return txn, true, nil
		}
	}
	return types.ParsedTransaction{}, false, nil
}

func (m *Memory) ListTransactionsByUser(_ context.Context, userID string) ([]types.ParsedTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.ParsedTransaction
	for i := len(m.txnIDs) - 1; i >= 0; i-- {
		txn := m.transactions[m.txnIDs[i]]
		if txn.UserID == userID {
			out = append(out, txn)
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

func (m *Memory) collectTemplates(keep func(types.Template) bool) []types.Template {
	var out []types.Template
	for _, id := range m.templateIDs {
		if t := m.templates[id]; keep(t) {
			out = append(out, t)
		}
	}
	return out
}
