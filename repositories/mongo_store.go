package repositories

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fly8app/fly8_backend/models"
)

const (
	settingsCacheKey = "fly8:platformSettings"
	settingsCacheTTL = 60 * time.Second
)

// MongoStore is the production Store backed by MongoDB, with a Redis
// read-through cache for the settings singleton.
type MongoStore struct {
	db    *mongo.Database
	redis *redis.Client
}

// NewMongoStore creates a MongoStore. The Redis client may be nil; the
// settings cache is skipped in that case.
func NewMongoStore(db *mongo.Database, redisClient *redis.Client) *MongoStore {
	return &MongoStore{db: db, redis: redisClient}
}

func notDeleted() bson.M {
	return bson.M{"isDeleted": bson.M{"$ne": true}}
}

// GetSettings returns the settings singleton, reading through the Redis
// cache when available. A missing document yields platform defaults so the
// engine keeps working on a fresh install.
func (s *MongoStore) GetSettings(ctx context.Context) (*models.PlatformSettings, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, settingsCacheKey).Result(); err == nil {
			var settings models.PlatformSettings
			if err := json.Unmarshal([]byte(cached), &settings); err == nil {
				return &settings, nil
			}
		}
	}

	var settings models.PlatformSettings
	err := s.db.Collection("platformSettings").FindOne(ctx, bson.M{}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		settings = models.PlatformSettings{
			DefaultAgentCommission: 10,
			PayoutThreshold:        50,
			CommissionCurrency:     "USD",
		}
	} else if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if encoded, err := json.Marshal(settings); err == nil {
			if err := s.redis.Set(ctx, settingsCacheKey, encoded, settingsCacheTTL).Err(); err != nil {
				log.Printf("Failed to cache platform settings: %v", err)
			}
		}
	}
	return &settings, nil
}

// UpdateSettings replaces the settings singleton and invalidates the cache.
func (s *MongoStore) UpdateSettings(ctx context.Context, settings *models.PlatformSettings) error {
	settings.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{}
	if !settings.ID.IsZero() {
		filter = bson.M{"_id": settings.ID}
	}
	if _, err := s.db.Collection("platformSettings").ReplaceOne(ctx, filter, settings, opts); err != nil {
		return err
	}
	if s.redis != nil {
		if err := s.redis.Del(ctx, settingsCacheKey).Err(); err != nil {
			log.Printf("Failed to invalidate settings cache: %v", err)
		}
	}
	return nil
}

func (s *MongoStore) GetAgent(ctx context.Context, id primitive.ObjectID) (*models.Agent, error) {
	var agent models.Agent
	err := s.db.Collection("agents").FindOne(ctx, bson.M{"_id": id}).Decode(&agent)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *MongoStore) GetAgentByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Agent, error) {
	var agent models.Agent
	err := s.db.Collection("agents").FindOne(ctx, bson.M{"userId": userID}).Decode(&agent)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *MongoStore) UpdateAgentEarnings(ctx context.Context, id primitive.ObjectID, totalEarnings, pendingEarnings float64) error {
	result, err := s.db.Collection("agents").UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"totalEarnings":   totalEarnings,
			"pendingEarnings": pendingEarnings,
			"updatedAt":       time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) GetUniversityByCode(ctx context.Context, code string) (*models.University, error) {
	var university models.University
	err := s.db.Collection("universities").FindOne(ctx, bson.M{"code": code}).Decode(&university)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &university, nil
}

func (s *MongoStore) InsertCommission(ctx context.Context, commission *models.Commission) error {
	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	_, err := s.db.Collection("commissions").InsertOne(ctx, commission)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSource
	}
	return err
}

func (s *MongoStore) GetCommission(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	filter := notDeleted()
	filter["_id"] = id
	var commission models.Commission
	err := s.db.Collection("commissions").FindOne(ctx, filter).Decode(&commission)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (s *MongoStore) findCommissionBySource(ctx context.Context, field string, sourceID primitive.ObjectID) (*models.Commission, error) {
	filter := notDeleted()
	filter[field] = sourceID
	var commission models.Commission
	err := s.db.Collection("commissions").FindOne(ctx, filter).Decode(&commission)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (s *MongoStore) FindCommissionByApplication(ctx context.Context, applicationID primitive.ObjectID) (*models.Commission, error) {
	return s.findCommissionBySource(ctx, "applicationId", applicationID)
}

func (s *MongoStore) FindCommissionByServiceRequest(ctx context.Context, serviceRequestID primitive.ObjectID) (*models.Commission, error) {
	return s.findCommissionBySource(ctx, "serviceRequestId", serviceRequestID)
}

func (s *MongoStore) ListCommissions(ctx context.Context, filter CommissionFilter) ([]models.Commission, int64, error) {
	query := notDeleted()
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.AgentID != nil {
		query["agentId"] = *filter.AgentID
	}

	coll := s.db.Collection("commissions")
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
		if filter.Page > 1 {
			opts.SetSkip((filter.Page - 1) * filter.Limit)
		}
	}
	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var commissions []models.Commission
	if err := cursor.All(ctx, &commissions); err != nil {
		return nil, 0, err
	}
	return commissions, total, nil
}

func (s *MongoStore) ListAgentCommissions(ctx context.Context, agentID primitive.ObjectID) ([]models.Commission, error) {
	query := notDeleted()
	query["agentId"] = agentID
	cursor, err := s.db.Collection("commissions").Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commissions []models.Commission
	if err := cursor.All(ctx, &commissions); err != nil {
		return nil, err
	}
	return commissions, nil
}

func (s *MongoStore) CountAgentCommissions(ctx context.Context, agentID primitive.ObjectID, commissionType string, statuses []string) (int64, error) {
	query := notDeleted()
	query["agentId"] = agentID
	query["commissionType"] = commissionType
	query["status"] = bson.M{"$in": statuses}
	return s.db.Collection("commissions").CountDocuments(ctx, query)
}

func (s *MongoStore) GetCommissionSummary(ctx context.Context) (*CommissionSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: notDeleted()}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
			"total": bson.M{"$sum": "$amount"},
		}}},
	}
	cursor, err := s.db.Collection("commissions").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string  `bson:"_id"`
		Count  int64   `bson:"count"`
		Total  float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	summary := &CommissionSummary{}
	for _, row := range rows {
		entry := StatusTotal{Count: row.Count, Total: row.Total}
		switch row.Status {
		case models.CommissionStatusPending:
			summary.Pending = entry
		case models.CommissionStatusApproved:
			summary.Approved = entry
		case models.CommissionStatusPaid:
			summary.Paid = entry
		}
	}
	return summary, nil
}

// TransitionCommission applies a compare-and-set status change: the update
// only matches when the commission is still in the expected status.
func (s *MongoStore) TransitionCommission(ctx context.Context, id primitive.ObjectID, from string, tr CommissionTransition) (*models.Commission, error) {
	set := bson.M{
		"status":    tr.To,
		"updatedAt": time.Now(),
	}
	if tr.InvoiceNumber != "" {
		set["invoiceNumber"] = tr.InvoiceNumber
	}
	if tr.ApprovedBy != "" {
		set["approvedBy"] = tr.ApprovedBy
	}
	if tr.ApprovedAt != nil {
		set["approvedAt"] = *tr.ApprovedAt
	}
	if tr.RejectedBy != "" {
		set["rejectedBy"] = tr.RejectedBy
	}
	if tr.RejectedAt != nil {
		set["rejectedAt"] = *tr.RejectedAt
	}
	if tr.RejectionReason != "" {
		set["rejectionReason"] = tr.RejectionReason
	}
	if tr.PaidAt != nil {
		set["paidAt"] = *tr.PaidAt
	}
	if tr.PayoutMethod != "" {
		set["payoutMethod"] = tr.PayoutMethod
	}
	if tr.PayoutReference != "" {
		set["payoutReference"] = tr.PayoutReference
	}
	if tr.ProcessedBy != "" {
		set["processedBy"] = tr.ProcessedBy
	}

	filter := notDeleted()
	filter["_id"] = id
	filter["status"] = from
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"statusHistory": tr.Entry},
	}

	var updated models.Commission
	err := s.db.Collection("commissions").FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		// Distinguish a missing commission from a lost CAS race.
		if _, lookupErr := s.GetCommission(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ClaimCommission conditionally stamps payoutClaimId on an approved,
// unclaimed commission. Concurrent payout requests over the same commission
// race on this write and exactly one wins; the losers get ErrStatusConflict.
func (s *MongoStore) ClaimCommission(ctx context.Context, id, payoutID primitive.ObjectID) error {
	filter := notDeleted()
	filter["_id"] = id
	filter["status"] = models.CommissionStatusApproved
	filter["payoutClaimId"] = bson.M{"$exists": false}

	result, err := s.db.Collection("commissions").UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"payoutClaimId": payoutID, "updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		if _, lookupErr := s.GetCommission(ctx, id); lookupErr != nil {
			return lookupErr
		}
		return ErrStatusConflict
	}
	return nil
}

// ReleaseCommissionClaim clears a claim held by the given payout. Claims held
// by other payouts are left untouched, so the call is safe to repeat.
func (s *MongoStore) ReleaseCommissionClaim(ctx context.Context, id, payoutID primitive.ObjectID) error {
	_, err := s.db.Collection("commissions").UpdateOne(ctx,
		bson.M{"_id": id, "payoutClaimId": payoutID},
		bson.M{
			"$unset": bson.M{"payoutClaimId": ""},
			"$set":   bson.M{"updatedAt": time.Now()},
		})
	return err
}

func (s *MongoStore) InsertPayout(ctx context.Context, payout *models.Payout) error {
	if payout.ID.IsZero() {
		payout.ID = primitive.NewObjectID()
	}
	_, err := s.db.Collection("payouts").InsertOne(ctx, payout)
	return err
}

func (s *MongoStore) GetPayout(ctx context.Context, id primitive.ObjectID) (*models.Payout, error) {
	var payout models.Payout
	err := s.db.Collection("payouts").FindOne(ctx, bson.M{"_id": id}).Decode(&payout)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (s *MongoStore) ListPayouts(ctx context.Context, filter PayoutFilter) ([]models.Payout, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.AgentID != nil {
		query["agentId"] = *filter.AgentID
	}
	cursor, err := s.db.Collection("payouts").Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "requestedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payouts []models.Payout
	if err := cursor.All(ctx, &payouts); err != nil {
		return nil, err
	}
	return payouts, nil
}

// FindOpenPayoutHolding returns a payout that still claims any of the given
// commissions, i.e. one not failed or cancelled.
func (s *MongoStore) FindOpenPayoutHolding(ctx context.Context, commissionIDs []primitive.ObjectID) (*models.Payout, error) {
	query := bson.M{
		"commissionIds": bson.M{"$in": commissionIDs},
		"status": bson.M{"$in": []string{
			models.PayoutStatusRequested,
			models.PayoutStatusProcessing,
			models.PayoutStatusCompleted,
		}},
	}
	var payout models.Payout
	err := s.db.Collection("payouts").FindOne(ctx, query).Decode(&payout)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (s *MongoStore) TransitionPayout(ctx context.Context, id primitive.ObjectID, from []string, tr PayoutTransition) (*models.Payout, error) {
	set := bson.M{"status": tr.To}
	if tr.InvoiceNumber != "" {
		set["invoiceNumber"] = tr.InvoiceNumber
	}
	if tr.ExternalReference != "" {
		set["externalReference"] = tr.ExternalReference
	}
	if tr.AdminNote != "" {
		set["adminNote"] = tr.AdminNote
	}
	if tr.FailureReason != "" {
		set["failureReason"] = tr.FailureReason
	}
	if tr.ProcessedAt != nil {
		set["processedAt"] = *tr.ProcessedAt
	}
	if tr.ProcessedBy != "" {
		set["processedBy"] = tr.ProcessedBy
	}

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": from},
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"statusHistory": tr.Entry},
	}

	var updated models.Payout
	err := s.db.Collection("payouts").FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		if _, lookupErr := s.GetPayout(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// NextInvoiceSeq increments and returns the per-year invoice counter. The
// upserted counter document makes the sequence gapless and collision-free
// under concurrent assigners.
func (s *MongoStore) NextInvoiceSeq(ctx context.Context, year int) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection("invoiceCounters").FindOneAndUpdate(ctx,
		bson.M{"_id": year},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (s *MongoStore) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	_, err := s.db.Collection("auditLogs").InsertOne(ctx, entry)
	return err
}

func (s *MongoStore) InsertNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	_, err := s.db.Collection("notifications").InsertOne(ctx, notification)
	return err
}

func (s *MongoStore) ListNotifications(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.db.Collection("notifications").Find(ctx, bson.M{"recipientId": recipientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *MongoStore) MarkNotificationRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	result, err := s.db.Collection("notifications").UpdateOne(ctx,
		bson.M{"_id": id, "recipientId": recipientID},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListActiveSuperAdmins(ctx context.Context) ([]models.User, error) {
	cursor, err := s.db.Collection("users").Find(ctx, bson.M{
		"userType": models.UserTypeSuperAdmin,
		"isActive": true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var admins []models.User
	if err := cursor.All(ctx, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}
