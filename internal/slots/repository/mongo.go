package repository

import (
	"context"
	slotserrors "courtbook/internal/slots/errors"
	"courtbook/pkg/config"
	mongotx "courtbook/pkg/db/mongo"
	"courtbook/pkg/model"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	tx         mongotx.Transactor
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		tx:         mongotx.NewTransactor(cfg.Client.Mongo),
	}
}

func (r *mongoSlotRepository) CreateMany(ctx context.Context, slots []*model.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	docs := make([]any, len(slots))
	for i, s := range slots {
		docs[i] = s
	}

	return r.tx.InTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.collection.InsertMany(sessCtx, docs); err != nil {
			if mongotx.IsDuplicateKey(err) {
				return fmt.Errorf("%w: %v", slotserrors.ErrDuplicate, err)
			}
			return fmt.Errorf("failed to create slots: %w", err)
		}
		return nil
	})
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var slot model.Slot
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&slot); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoSlotRepository) FindByCourtDate(ctx context.Context, courtID, date string) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"court_id": courtID, "date": date}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *mongoSlotRepository) FindExpiredHolds(ctx context.Context, now time.Time) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":          model.SlotHeld,
		"hold_expires_at": bson.M{"$lte": now},
	}
	return r.find(ctx, filter, options.Find())
}

func (r *mongoSlotRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Slot, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []*model.Slot{}
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

func (r *mongoSlotRepository) Transition(ctx context.Context, id string, guard Guard, next State) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": guard.Status}
	if guard.HoldToken != "" {
		filter["hold_token"] = guard.HoldToken
	}
	expiry := bson.M{}
	if !guard.ExpiredAt.IsZero() {
		expiry["$lte"] = guard.ExpiredAt
	}
	if !guard.ValidAt.IsZero() {
		expiry["$gt"] = guard.ValidAt
	}
	if len(expiry) > 0 {
		filter["hold_expires_at"] = expiry
	}

	set := bson.M{"status": next.Status, "updated_at": next.UpdatedAt}
	unset := bson.M{}
	setOrUnset(set, unset, "held_by", next.HeldBy, next.HeldBy == "")
	setOrUnset(set, unset, "hold_token", next.HoldToken, next.HoldToken == "")
	setOrUnset(set, unset, "hold_expires_at", next.HoldExpiresAt, next.HoldExpiresAt.IsZero())
	setOrUnset(set, unset, "booking_id", next.BookingID, next.BookingID == "")
	setOrUnset(set, unset, "booked_by", next.BookedBy, next.BookedBy == "")

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var slot model.Slot
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot)
	if err == nil {
		return &slot, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to transition slot: %w", err)
	}

	current, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	return nil, fmt.Errorf("%w: %s is %s", slotserrors.ErrStatusMismatch, id, current.Status)
}

func setOrUnset(set, unset bson.M, field string, value any, empty bool) {
	if empty {
		unset[field] = ""
		return
	}
	set[field] = value
}
