package databases

// go generate: mockery --name MovementDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/forensic-case-api/models"
)

const movementName = "occurrenceMovements"

// MovementDatabase contains the methods to use with the occurrence movement
// database. Movements are append-only; UpdateOne only touches deadline flags.
type MovementDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.OccurrenceMovement, error)
	InsertOne(ctx context.Context, m models.OccurrenceMovement) (*models.OccurrenceMovement, error)
	LatestDeadline(ctx context.Context, occurrenceID string) (*models.OccurrenceMovement, error)
	UpdateFlags(ctx context.Context, m models.OccurrenceMovement, isOverdue, isNearDeadline bool) error
}

type movementDatabase struct {
	db DatabaseHelper
}

// NewMovementDatabase initializes a new instance of movement database with the provided db connection
func NewMovementDatabase(db DatabaseHelper) MovementDatabase {
	return &movementDatabase{
		db: db,
	}
}

func (m *movementDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.OccurrenceMovement, error) {
	var movements []models.OccurrenceMovement
	cursor, err := m.db.Collection(movementName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cursor.Decode(&movements)
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func (m *movementDatabase) InsertOne(ctx context.Context, movement models.OccurrenceMovement) (*models.OccurrenceMovement, error) {
	res, err := m.db.Collection(movementName).InsertOne(ctx, movement)
	if err != nil {
		return nil, err
	}
	if id, ok := objectID(res.Decode()); ok {
		movement.ID = id
	}
	return &movement, nil
}

// LatestDeadline returns the newest movement of the occurrence that carries a
// deadline, or nil when the occurrence never had one
func (m *movementDatabase) LatestDeadline(ctx context.Context, occurrenceID string) (*models.OccurrenceMovement, error) {
	movement := &models.OccurrenceMovement{}
	opts := options.FindOne().SetSort(bson.D{{Key: "performedAt", Value: -1}, {Key: "_id", Value: -1}})
	err := m.db.Collection(movementName).FindOne(ctx, bson.M{
		"occurrenceId": occurrenceID,
		"deadline":     bson.M{"$ne": nil},
	}, opts).Decode(&movement)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return movement, nil
}

func (m *movementDatabase) UpdateFlags(ctx context.Context, movement models.OccurrenceMovement, isOverdue, isNearDeadline bool) error {
	_, err := m.db.Collection(movementName).UpdateOne(ctx,
		bson.M{"_id": movement.ID},
		bson.M{"$set": bson.M{"isOverdue": isOverdue, "isNearDeadline": isNearDeadline}},
	)
	return err
}
