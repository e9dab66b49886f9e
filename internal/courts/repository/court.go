package repository

import (
	"context"
	courtserrors "courtbook/internal/courts/errors"
	"courtbook/pkg/config"
	mongotx "courtbook/pkg/db/mongo"
	"courtbook/pkg/model"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Courts"
)

type CourtRepository interface {
	Create(ctx context.Context, court *model.Court) error
	FindByID(ctx context.Context, id string) (*model.Court, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Court, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, court *model.Court) error
}

type mongoCourtRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCourtRepository(cfg *config.Config) CourtRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCourtRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoCourtRepository) Create(ctx context.Context, court *model.Court) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, court); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", courtserrors.ErrDuplicateName, court.Name)
		}
		return fmt.Errorf("failed to create court: %w", err)
	}
	return nil
}

func (r *mongoCourtRepository) FindByID(ctx context.Context, id string) (*model.Court, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var court model.Court
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&court)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", courtserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find court: %w", err)
	}
	return &court, nil
}

func (r *mongoCourtRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Court, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "name_key", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query courts: %w", err)
	}
	defer cursor.Close(ctx)

	courts := []*model.Court{}
	if err = cursor.All(ctx, &courts); err != nil {
		return nil, fmt.Errorf("failed to decode courts: %w", err)
	}
	return courts, nil
}

func (r *mongoCourtRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count courts: %w", err)
	}
	return count, nil
}

func (r *mongoCourtRepository) Update(ctx context.Context, id string, court *model.Court) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"name":         court.Name,
			"name_key":     court.NameKey,
			"category":     court.Category,
			"hourly_price": court.HourlyPrice,
			"features":     court.Features,
			"capacity":     court.Capacity,
			"description":  court.Description,
			"updated_at":   court.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", courtserrors.ErrDuplicateName, court.Name)
		}
		return fmt.Errorf("failed to update court: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", courtserrors.ErrNotFound, id)
	}
	return nil
}
