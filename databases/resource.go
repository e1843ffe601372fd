package databases

// go generate: mockery --name ResourceDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/forensic-case-api/models"
)

// Master-data collections
const (
	CityCollection                     = "cities"
	ProcedureCollection                = "procedures"
	AuthorityCollection                = "authorities"
	ExamTypeCollection                 = "examTypes"
	ForensicServiceCollection          = "forensicServices"
	RequestingUnitCollection           = "requestingUnits"
	OccurrenceClassificationCollection = "occurrenceClassifications"
	LocationCollection                 = "locations"
)

// ResourceDatabase contains the methods to use with a master-data collection
type ResourceDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Resource, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Resource, error)
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
	InsertOne(ctx context.Context, r models.Resource) (*models.Resource, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) error
	DeleteOne(ctx context.Context, filter interface{}) error
}

type resourceDatabase struct {
	db         DatabaseHelper
	collection string
}

// NewResourceDatabase initializes a master-data database bound to collection
func NewResourceDatabase(db DatabaseHelper, collection string) ResourceDatabase {
	return &resourceDatabase{
		db:         db,
		collection: collection,
	}
}

func (r *resourceDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Resource, error) {
	resource := &models.Resource{}
	err := r.db.Collection(r.collection).FindOne(ctx, filter).Decode(&resource)
	if err != nil {
		return nil, err
	}
	return resource, nil
}

func (r *resourceDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Resource, error) {
	var resources []models.Resource
	cursor, err := r.db.Collection(r.collection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cursor.Decode(&resources)
	if err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *resourceDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return r.db.Collection(r.collection).CountDocuments(ctx, filter)
}

func (r *resourceDatabase) InsertOne(ctx context.Context, resource models.Resource) (*models.Resource, error) {
	res, err := r.db.Collection(r.collection).InsertOne(ctx, resource)
	if err != nil {
		return nil, err
	}
	if id, ok := objectID(res.Decode()); ok {
		resource.ID = id
	}
	return &resource, nil
}

func (r *resourceDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	_, err := r.db.Collection(r.collection).UpdateOne(ctx, filter, update)
	return err
}

func (r *resourceDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	return r.db.Collection(r.collection).DeleteOne(ctx, filter)
}
