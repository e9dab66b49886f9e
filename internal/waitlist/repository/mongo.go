package repository

import (
	"context"
	waitlisterrors "courtbook/internal/waitlist/errors"
	"courtbook/pkg/config"
	mongotx "courtbook/pkg/db/mongo"
	"courtbook/pkg/model"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoWaitlistRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	tx         mongotx.Transactor
}

func NewMongoWaitlistRepository(cfg *config.Config) WaitlistRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWaitlistRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		tx:         mongotx.NewTransactor(cfg.Client.Mongo),
	}
}

func (r *mongoWaitlistRepository) Insert(ctx context.Context, entry *model.WaitingListEntry) error {
	return r.tx.InTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		count, err := r.collection.CountDocuments(sessCtx, bson.M{"slot_id": entry.SlotID})
		if err != nil {
			return fmt.Errorf("failed to count waiting list: %w", err)
		}
		if entry.Position < 1 {
			entry.Position = 1
		}
		if int64(entry.Position) > count+1 {
			entry.Position = int(count) + 1
		}

		_, err = r.collection.UpdateMany(sessCtx,
			bson.M{"slot_id": entry.SlotID, "position": bson.M{"$gte": entry.Position}},
			bson.M{"$inc": bson.M{"position": 1}},
		)
		if err != nil {
			return fmt.Errorf("failed to shift waiting list: %w", err)
		}

		if _, err := r.collection.InsertOne(sessCtx, entry); err != nil {
			if mongotx.IsDuplicateKey(err) {
				return fmt.Errorf("%w: %s on %s", waitlisterrors.ErrAlreadyQueued, entry.UserID, entry.SlotID)
			}
			return fmt.Errorf("failed to insert waiting list entry: %w", err)
		}
		return nil
	})
}

func (r *mongoWaitlistRepository) Remove(ctx context.Context, id string) (*model.WaitingListEntry, error) {
	var removed model.WaitingListEntry
	err := r.tx.InTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		err := r.collection.FindOneAndDelete(sessCtx, bson.M{"_id": id}).Decode(&removed)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("%w: %s", waitlisterrors.ErrNotFound, id)
			}
			return fmt.Errorf("failed to delete waiting list entry: %w", err)
		}

		_, err = r.collection.UpdateMany(sessCtx,
			bson.M{"slot_id": removed.SlotID, "position": bson.M{"$gt": removed.Position}},
			bson.M{"$inc": bson.M{"position": -1}},
		)
		if err != nil {
			return fmt.Errorf("failed to compact waiting list: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

func (r *mongoWaitlistRepository) FindByID(ctx context.Context, id string) (*model.WaitingListEntry, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var entry model.WaitingListEntry
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", waitlisterrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find waiting list entry: %w", err)
	}
	return &entry, nil
}

func (r *mongoWaitlistRepository) FindBySlot(ctx context.Context, slotID string) ([]*model.WaitingListEntry, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	return r.find(ctx, bson.M{"slot_id": slotID}, opts)
}

func (r *mongoWaitlistRepository) FindByUser(ctx context.Context, userID string) ([]*model.WaitingListEntry, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "requested_at", Value: 1}})
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *mongoWaitlistRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.WaitingListEntry, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "slot_id", Value: 1}, {Key: "position", Value: 1}})
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoWaitlistRepository) CountAll(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count waiting list: %w", err)
	}
	return count, nil
}

func (r *mongoWaitlistRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.WaitingListEntry, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query waiting list: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []*model.WaitingListEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode waiting list: %w", err)
	}
	return entries, nil
}
