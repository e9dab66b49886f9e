package locks

import (
	"context"
	"courtbook/pkg/db/mongo"
	"courtbook/pkg/model"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Slot_locks"

// MongoLocker stores one document per held key; the unique _id turns a
// concurrent insert into a duplicate key error. A TTL index on expires_at
// cleans up after crashed holders, and TryAcquire takes over expired
// documents itself since the TTL monitor only runs once a minute.
type MongoLocker struct {
	collection *mongodriver.Collection
	now        func() time.Time
}

func NewMongoLocker(db *mongodriver.Database, now func() time.Time) *MongoLocker {
	if now == nil {
		now = time.Now
	}
	return &MongoLocker{
		collection: db.Collection(LockCollectionName),
		now:        now,
	}
}

func (l *MongoLocker) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := l.now().UTC()
	lock := &model.SlotLock{
		ID:        key,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := l.collection.InsertOne(ctx, lock)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKey(err) {
		return false, fmt.Errorf("failed to insert lock %s: %w", key, err)
	}

	filter := bson.M{"_id": key, "expires_at": bson.M{"$lte": now}}
	update := bson.M{"$set": bson.M{
		"owner":      owner,
		"expires_at": lock.ExpiresAt,
		"created_at": now,
	}}
	result, err := l.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to take over lock %s: %w", key, err)
	}
	return result.ModifiedCount == 1, nil
}

func (l *MongoLocker) Release(ctx context.Context, key, owner string) error {
	result, err := l.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	if err != nil {
		return fmt.Errorf("failed to delete lock %s: %w", key, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotHeld
	}
	return nil
}
