package databases

// go generate: mockery --name OccurrenceDatabase

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/forensic-case-api/models"
)

const (
	occurrenceName = "generalOccurrences"
	counterName    = "counters"
)

// OccurrenceDatabase contains the methods to use with the occurrence database
type OccurrenceDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.GeneralOccurrence, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.GeneralOccurrence, error)
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
	InsertOne(ctx context.Context, o models.GeneralOccurrence) (*models.GeneralOccurrence, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) error
	NextCaseNumber(ctx context.Context, year int) (string, error)
}

type occurrenceDatabase struct {
	db DatabaseHelper
}

// NewOccurrenceDatabase initializes a new instance of occurrence database with the provided db connection
func NewOccurrenceDatabase(db DatabaseHelper) OccurrenceDatabase {
	return &occurrenceDatabase{
		db: db,
	}
}

func (o *occurrenceDatabase) FindOne(ctx context.Context, filter interface{}) (*models.GeneralOccurrence, error) {
	occurrence := &models.GeneralOccurrence{}
	err := o.db.Collection(occurrenceName).FindOne(ctx, filter).Decode(&occurrence)
	if err != nil {
		return nil, err
	}
	return occurrence, nil
}

func (o *occurrenceDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.GeneralOccurrence, error) {
	var occurrences []models.GeneralOccurrence
	cursor, err := o.db.Collection(occurrenceName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cursor.Decode(&occurrences)
	if err != nil {
		return nil, err
	}
	return occurrences, nil
}

func (o *occurrenceDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return o.db.Collection(occurrenceName).CountDocuments(ctx, filter)
}

func (o *occurrenceDatabase) InsertOne(ctx context.Context, occurrence models.GeneralOccurrence) (*models.GeneralOccurrence, error) {
	res, err := o.db.Collection(occurrenceName).InsertOne(ctx, occurrence)
	if err != nil {
		return nil, err
	}
	if id, ok := objectID(res.Decode()); ok {
		occurrence.ID = id
	}
	return &occurrence, nil
}

func (o *occurrenceDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	_, err := o.db.Collection(occurrenceName).UpdateOne(ctx, filter, update)
	return err
}

// NextCaseNumber reserves the next case number of year, formatted as
// <year>.<6-digit sequence>
func (o *occurrenceDatabase) NextCaseNumber(ctx context.Context, year int) (string, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := o.db.Collection(counterName).FindOneAndUpdate(ctx,
		bson.M{"_id": fmt.Sprintf("caseNumber.%d", year)},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return "", err
	}
	return FormatCaseNumber(year, counter.Seq), nil
}

// FormatCaseNumber renders a case number
func FormatCaseNumber(year int, seq int64) string {
	return fmt.Sprintf("%d.%06d", year, seq)
}
