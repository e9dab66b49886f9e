package mongo

import (
	"context"
	apperrors "courtbook/pkg/errors"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

type TxFunc func(sessCtx mongo.SessionContext) error

type Transactor interface {
	InTransaction(ctx context.Context, fn TxFunc) error
}

// transactor runs multi-document writes on a replica set. Transient
// transaction and commit errors are retried by the driver.
type transactor struct {
	client *mongo.Client
	opts   *options.TransactionOptions
}

func NewTransactor(client *mongo.Client) Transactor {
	return &transactor{
		client: client,
		opts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()),
	}
}

// InTransaction joins the caller's transaction when ctx already carries one.
// Errors from fn that are domain errors (AppErrors or wrapped sentinels from
// fn itself) are returned unchanged so callers can match them.
func (t *transactor) InTransaction(ctx context.Context, fn TxFunc) error {
	if sessCtx, ok := ctx.(mongo.SessionContext); ok {
		return fn(sessCtx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	var fnErr error
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		fnErr = fn(sessCtx)
		return nil, fnErr
	}, t.opts)
	if err == nil {
		return nil
	}
	if fnErr != nil && (apperrors.IsAppError(fnErr) || !isServerError(fnErr)) {
		return fnErr
	}
	return fmt.Errorf("transaction aborted: %w", err)
}

func isServerError(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se)
}
