package repository

import (
	"context"
	bookingserrors "courtbook/internal/bookings/errors"
	"courtbook/pkg/config"
	mongotx "courtbook/pkg/db/mongo"
	"courtbook/pkg/model"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// BookingRepository is append-and-transition only; bookings are never deleted.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByReference(ctx context.Context, reference string) (*model.Booking, error)
	// FindByUser returns the user's bookings, most recently created first.
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	// FindByCourt returns bookings matching filter's Range and Status, ordered
	// by start time.
	FindByCourt(ctx context.Context, courtID string, filter model.BookingFilter) ([]*model.Booking, error)
	FindActiveBySlot(ctx context.Context, slotID string) (*model.Booking, error)
	FindEndedUpcoming(ctx context.Context, before time.Time) ([]*model.Booking, error)
	// UpdateStatus writes booking's status fields when the stored status is from.
	UpdateStatus(ctx context.Context, from model.BookingStatus, booking *model.Booking) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		if mongotx.IsDuplicateKey(err) {
			if strings.Contains(err.Error(), "reference") {
				return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateReference, booking.Reference)
			}
			return fmt.Errorf("%w: %s", bookingserrors.ErrActiveExists, booking.SlotID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"_id": id}, id)
}

func (r *mongoBookingRepository) FindByReference(ctx context.Context, reference string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"reference": reference}, reference)
}

func (r *mongoBookingRepository) FindActiveBySlot(ctx context.Context, slotID string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"slot_id": slotID, "status": model.BookingUpcoming}, slotID)
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M, key string) (*model.Booking, error) {
	var booking model.Booking
	if err := r.collection.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})

	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *mongoBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) FindByCourt(ctx context.Context, courtID string, f model.BookingFilter) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"court_id": courtID}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	startFilter := bson.M{}
	if !f.Range.From.IsZero() {
		startFilter["$gte"] = f.Range.From
	}
	if !f.Range.To.IsZero() {
		startFilter["$lt"] = f.Range.To
	}
	if len(startFilter) > 0 {
		filter["start_time"] = startFilter
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "created_at", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) FindEndedUpcoming(ctx context.Context, before time.Time) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":   model.BookingUpcoming,
		"end_time": bson.M{"$lte": before},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "end_time", Value: 1}}))
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, from model.BookingStatus, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{
		"status":         booking.Status,
		"payment_status": booking.PaymentStatus,
	}
	unset := bson.M{}
	if booking.CancelledAt.IsZero() {
		unset["cancelled_at"] = ""
	} else {
		set["cancelled_at"] = booking.CancelledAt
	}
	if booking.CompletedAt.IsZero() {
		unset["completed_at"] = ""
	} else {
		set["completed_at"] = booking.CompletedAt
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": booking.ID, "status": from}, update)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", bookingserrors.ErrActiveExists, booking.SlotID)
		}
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, booking.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s is no longer %s", bookingserrors.ErrStatusMismatch, booking.ID, from)
	}
	return nil
}
