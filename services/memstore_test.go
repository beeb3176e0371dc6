package services

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/repositories"
)

// memStore is an in-memory repositories.Store with the same semantics as the
// Mongo implementation: unique source links, conditional transitions, per-year
// invoice counters.
type memStore struct {
	mu            sync.Mutex
	settings      *models.PlatformSettings
	agents        map[primitive.ObjectID]*models.Agent
	universities  map[string]*models.University
	commissions   map[primitive.ObjectID]*models.Commission
	payouts       map[primitive.ObjectID]*models.Payout
	invoiceSeqs   map[int]int64
	auditLogs     []models.AuditLog
	notifications []models.Notification
	admins        []models.User
}

func newMemStore() *memStore {
	return &memStore{
		agents:       make(map[primitive.ObjectID]*models.Agent),
		universities: make(map[string]*models.University),
		commissions:  make(map[primitive.ObjectID]*models.Commission),
		payouts:      make(map[primitive.ObjectID]*models.Payout),
		invoiceSeqs:  make(map[int]int64),
	}
}

func (m *memStore) GetSettings(ctx context.Context) (*models.PlatformSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return &models.PlatformSettings{
			DefaultAgentCommission: 10,
			PayoutThreshold:        50,
			CommissionCurrency:     "USD",
		}, nil
	}
	copied := *m.settings
	return &copied, nil
}

func (m *memStore) UpdateSettings(ctx context.Context, settings *models.PlatformSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *settings
	m.settings = &copied
	return nil
}

func (m *memStore) GetAgent(ctx context.Context, id primitive.ObjectID) (*models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agent, ok := m.agents[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *agent
	return &copied, nil
}

func (m *memStore) GetAgentByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, agent := range m.agents {
		if agent.UserID == userID {
			copied := *agent
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memStore) UpdateAgentEarnings(ctx context.Context, id primitive.ObjectID, totalEarnings, pendingEarnings float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	agent, ok := m.agents[id]
	if !ok {
		return repositories.ErrNotFound
	}
	agent.TotalEarnings = totalEarnings
	agent.PendingEarnings = pendingEarnings
	return nil
}

func (m *memStore) GetUniversityByCode(ctx context.Context, code string) (*models.University, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	university, ok := m.universities[code]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *university
	return &copied, nil
}

func (m *memStore) InsertCommission(ctx context.Context, commission *models.Commission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.commissions {
		if existing.IsDeleted {
			continue
		}
		if commission.ApplicationID != nil && existing.ApplicationID != nil &&
			*commission.ApplicationID == *existing.ApplicationID {
			return repositories.ErrDuplicateSource
		}
		if commission.ServiceRequestID != nil && existing.ServiceRequestID != nil &&
			*commission.ServiceRequestID == *existing.ServiceRequestID {
			return repositories.ErrDuplicateSource
		}
	}
	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	copied := *commission
	m.commissions[commission.ID] = &copied
	return nil
}

func (m *memStore) GetCommission(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	commission, ok := m.commissions[id]
	if !ok || commission.IsDeleted {
		return nil, repositories.ErrNotFound
	}
	copied := *commission
	return &copied, nil
}

func (m *memStore) FindCommissionByApplication(ctx context.Context, applicationID primitive.ObjectID) (*models.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, commission := range m.commissions {
		if commission.IsDeleted || commission.ApplicationID == nil {
			continue
		}
		if *commission.ApplicationID == applicationID {
			copied := *commission
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindCommissionByServiceRequest(ctx context.Context, serviceRequestID primitive.ObjectID) (*models.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, commission := range m.commissions {
		if commission.IsDeleted || commission.ServiceRequestID == nil {
			continue
		}
		if *commission.ServiceRequestID == serviceRequestID {
			copied := *commission
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListCommissions(ctx context.Context, filter repositories.CommissionFilter) ([]models.Commission, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.matchCommissions(filter)
	total := int64(len(matched))
	if filter.Limit > 0 {
		start := (filter.Page - 1) * filter.Limit
		if start < 0 {
			start = 0
		}
		if start >= total {
			return []models.Commission{}, total, nil
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (m *memStore) matchCommissions(filter repositories.CommissionFilter) []models.Commission {
	var matched []models.Commission
	for _, commission := range m.commissions {
		if commission.IsDeleted {
			continue
		}
		if filter.AgentID != nil && commission.AgentID != *filter.AgentID {
			continue
		}
		if filter.Status != "" && commission.Status != filter.Status {
			continue
		}
		matched = append(matched, *commission)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (m *memStore) ListAgentCommissions(ctx context.Context, agentID primitive.ObjectID) ([]models.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchCommissions(repositories.CommissionFilter{AgentID: &agentID}), nil
}

func (m *memStore) CountAgentCommissions(ctx context.Context, agentID primitive.ObjectID, commissionType string, statuses []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, commission := range m.commissions {
		if commission.IsDeleted || commission.AgentID != agentID {
			continue
		}
		if commissionType != "" && commission.CommissionType != commissionType {
			continue
		}
		if len(statuses) > 0 && !containsString(statuses, commission.Status) {
			continue
		}
		count++
	}
	return count, nil
}

func (m *memStore) GetCommissionSummary(ctx context.Context) (*repositories.CommissionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &repositories.CommissionSummary{}
	for _, commission := range m.commissions {
		if commission.IsDeleted {
			continue
		}
		switch commission.Status {
		case models.CommissionStatusPending:
			summary.Pending.Count++
			summary.Pending.Total += commission.Amount
		case models.CommissionStatusApproved:
			summary.Approved.Count++
			summary.Approved.Total += commission.Amount
		case models.CommissionStatusPaid:
			summary.Paid.Count++
			summary.Paid.Total += commission.Amount
		}
	}
	return summary, nil
}

func (m *memStore) TransitionCommission(ctx context.Context, id primitive.ObjectID, from string, tr repositories.CommissionTransition) (*models.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	commission, ok := m.commissions[id]
	if !ok || commission.IsDeleted {
		return nil, repositories.ErrNotFound
	}
	if commission.Status != from {
		return nil, repositories.ErrStatusConflict
	}
	commission.Status = tr.To
	commission.StatusHistory = append(commission.StatusHistory, tr.Entry)
	commission.UpdatedAt = tr.Entry.ChangedAt
	if tr.InvoiceNumber != "" {
		commission.InvoiceNumber = tr.InvoiceNumber
	}
	if tr.ApprovedBy != "" {
		commission.ApprovedBy = tr.ApprovedBy
	}
	if tr.ApprovedAt != nil {
		commission.ApprovedAt = tr.ApprovedAt
	}
	if tr.RejectedBy != "" {
		commission.RejectedBy = tr.RejectedBy
	}
	if tr.RejectedAt != nil {
		commission.RejectedAt = tr.RejectedAt
	}
	if tr.RejectionReason != "" {
		commission.RejectionReason = tr.RejectionReason
	}
	if tr.PaidAt != nil {
		commission.PaidAt = tr.PaidAt
	}
	if tr.PayoutMethod != "" {
		commission.PayoutMethod = tr.PayoutMethod
	}
	if tr.PayoutReference != "" {
		commission.PayoutReference = tr.PayoutReference
	}
	if tr.ProcessedBy != "" {
		commission.ProcessedBy = tr.ProcessedBy
	}
	copied := *commission
	return &copied, nil
}

func (m *memStore) ClaimCommission(ctx context.Context, id, payoutID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	commission, ok := m.commissions[id]
	if !ok || commission.IsDeleted {
		return repositories.ErrNotFound
	}
	if commission.Status != models.CommissionStatusApproved || commission.PayoutClaimID != nil {
		return repositories.ErrStatusConflict
	}
	claim := payoutID
	commission.PayoutClaimID = &claim
	return nil
}

func (m *memStore) ReleaseCommissionClaim(ctx context.Context, id, payoutID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	commission, ok := m.commissions[id]
	if !ok {
		return nil
	}
	if commission.PayoutClaimID != nil && *commission.PayoutClaimID == payoutID {
		commission.PayoutClaimID = nil
	}
	return nil
}

func (m *memStore) InsertPayout(ctx context.Context, payout *models.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payout.ID.IsZero() {
		payout.ID = primitive.NewObjectID()
	}
	copied := *payout
	m.payouts[payout.ID] = &copied
	return nil
}

func (m *memStore) GetPayout(ctx context.Context, id primitive.ObjectID) (*models.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payout, ok := m.payouts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *payout
	return &copied, nil
}

func (m *memStore) ListPayouts(ctx context.Context, filter repositories.PayoutFilter) ([]models.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Payout
	for _, payout := range m.payouts {
		if filter.AgentID != nil && payout.AgentID != *filter.AgentID {
			continue
		}
		if filter.Status != "" && payout.Status != filter.Status {
			continue
		}
		matched = append(matched, *payout)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RequestedAt.After(matched[j].RequestedAt)
	})
	return matched, nil
}

func (m *memStore) FindOpenPayoutHolding(ctx context.Context, commissionIDs []primitive.ObjectID) (*models.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[primitive.ObjectID]bool, len(commissionIDs))
	for _, id := range commissionIDs {
		wanted[id] = true
	}
	for _, payout := range m.payouts {
		if !payout.IsOpen() {
			continue
		}
		for _, id := range payout.CommissionIDs {
			if wanted[id] {
				copied := *payout
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (m *memStore) TransitionPayout(ctx context.Context, id primitive.ObjectID, from []string, tr repositories.PayoutTransition) (*models.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payout, ok := m.payouts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if !containsString(from, payout.Status) {
		return nil, repositories.ErrStatusConflict
	}
	payout.Status = tr.To
	payout.StatusHistory = append(payout.StatusHistory, tr.Entry)
	if tr.InvoiceNumber != "" {
		payout.InvoiceNumber = tr.InvoiceNumber
	}
	if tr.ExternalReference != "" {
		payout.ExternalReference = tr.ExternalReference
	}
	if tr.AdminNote != "" {
		payout.AdminNote = tr.AdminNote
	}
	if tr.FailureReason != "" {
		payout.FailureReason = tr.FailureReason
	}
	if tr.ProcessedAt != nil {
		payout.ProcessedAt = tr.ProcessedAt
	}
	if tr.ProcessedBy != "" {
		payout.ProcessedBy = tr.ProcessedBy
	}
	copied := *payout
	return &copied, nil
}

func (m *memStore) NextInvoiceSeq(ctx context.Context, year int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoiceSeqs[year]++
	return m.invoiceSeqs[year], nil
}

func (m *memStore) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditLogs = append(m.auditLogs, *entry)
	return nil
}

func (m *memStore) InsertNotification(ctx context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	m.notifications = append(m.notifications, *notification)
	return nil
}

func (m *memStore) ListNotifications(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Notification
	for i := len(m.notifications) - 1; i >= 0; i-- {
		if m.notifications[i].RecipientID == recipientID {
			matched = append(matched, m.notifications[i])
			if limit > 0 && int64(len(matched)) >= limit {
				break
			}
		}
	}
	return matched, nil
}

func (m *memStore) MarkNotificationRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].RecipientID == recipientID {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *memStore) ListActiveSuperAdmins(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.User{}, m.admins...), nil
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// listAll is the widest commission filter used across the tests.
func listAll() repositories.CommissionFilter {
	return repositories.CommissionFilter{Page: 1, Limit: 100}
}

// auditActions returns the recorded actions in order, for assertions.
func (m *memStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, len(m.auditLogs))
	for i := range m.auditLogs {
		actions[i] = m.auditLogs[i].Action
	}
	return actions
}
