package databases

// go generate: mockery --name LockDatabase

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const lockName = "schedulerLocks"

// LockDatabase keeps the distributed locks that stop two api instances from
// running the same scheduled job at once
type LockDatabase interface {
	TryAcquireLock(ctx context.Context, job, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, job, owner string) error
}

type lockDatabase struct {
	db  DatabaseHelper
	now func() time.Time
}

// NewLockDatabase initializes a new instance of lock database with the provided db connection
func NewLockDatabase(db DatabaseHelper) LockDatabase {
	return &lockDatabase{
		db:  db,
		now: time.Now,
	}
}

// TryAcquireLock takes the job lock when it is free, expired or already held
// by owner. A duplicate key error means another owner holds a live lock.
func (l *lockDatabase) TryAcquireLock(ctx context.Context, job, owner string, ttl time.Duration) (bool, error) {
	now := l.now()
	filter := bson.M{
		"_id": job,
		"$or": bson.A{
			bson.M{"expiresAt": bson.M{"$lt": now}},
			bson.M{"owner": owner},
		},
	}
	update := bson.M{"$set": bson.M{"owner": owner, "acquiredAt": now, "expiresAt": now.Add(ttl)}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var held struct {
		Owner string `bson:"owner"`
	}
	err := l.db.Collection(lockName).FindOneAndUpdate(ctx, filter, update, opts).Decode(&held)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return held.Owner == owner, nil
}

func (l *lockDatabase) ReleaseLock(ctx context.Context, job, owner string) error {
	err := l.db.Collection(lockName).DeleteOne(ctx, bson.M{"_id": job, "owner": owner})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return err
}
