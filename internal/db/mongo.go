package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/config"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/dberrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDocuments keeps one hierarchy document per organization in a MongoDB collection.
type MongoDocuments struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoDocuments connects to MongoDB
func NewMongoDocuments(ctx context.Context, cfg *config.Config) (*MongoDocuments, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Document.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to establish mongo connection: %w", classifyDocument("", err))
	}

	coll := client.Database(cfg.Document.Database).Collection(cfg.Document.Collection)
	return &MongoDocuments{client: client, coll: coll}, nil
}

// UpsertOrganization sets the root fields, creating the document with an empty division
// list the first time.
func (m *MongoDocuments) UpsertOrganization(ctx context.Context, org projectors.OrganizationDoc) error {
	update := bson.M{
		"$set":         bson.M{"name": org.Name, "address": org.Address},
		"$setOnInsert": bson.M{"divisions": bson.A{}},
	}
	_, err := m.coll.UpdateOne(ctx, bson.M{"_id": org.ID}, update, options.Update().SetUpsert(true))
	return classifyDocument(string(models.EntityOrganization), err)
}

// PushDivision appends a division unless one with the same id is already present.
func (m *MongoDocuments) PushDivision(ctx context.Context, orgID int64, div projectors.DivisionDoc) error {
	entity := string(models.EntityDivision)
	if div.Departments == nil {
		div.Departments = []projectors.DepartmentDoc{}
	}

	filter := bson.M{"_id": orgID, "divisions.id": bson.M{"$ne": div.ID}}
	res, err := m.coll.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"divisions": div}})
	if err != nil {
		return classifyDocument(entity, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: either the division is already there or the organization is missing.
	exists, err := m.exists(ctx, bson.M{"_id": orgID})
	if err != nil {
		return classifyDocument(entity, err)
	}
	if !exists {
		return projectors.Deferred(projectors.StoreDocument, entity, fmt.Sprintf("organization %d not projected yet", orgID))
	}
	return nil
}

// PushDepartment appends a department to its division entry unless already present.
func (m *MongoDocuments) PushDepartment(ctx context.Context, orgID, divisionID int64, dep projectors.DepartmentDoc) error {
	entity := string(models.EntityDepartment)

	filter := bson.M{
		"_id": orgID,
		"divisions": bson.M{"$elemMatch": bson.M{
			"id":             divisionID,
			"departments.id": bson.M{"$ne": dep.ID},
		}},
	}
	res, err := m.coll.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"divisions.$.departments": dep}})
	if err != nil {
		return classifyDocument(entity, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	exists, err := m.exists(ctx, bson.M{"_id": orgID, "divisions.id": divisionID})
	if err != nil {
		return classifyDocument(entity, err)
	}
	if !exists {
		return projectors.Deferred(projectors.StoreDocument, entity,
			fmt.Sprintf("organization %d or division %d not projected yet", orgID, divisionID))
	}
	return nil
}

func (m *MongoDocuments) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := m.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func (m *MongoDocuments) GetOrganization(ctx context.Context, id int64) (*projectors.OrganizationDoc, error) {
	var doc projectors.OrganizationDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("organization %d not found", id))
	}
	if err != nil {
		return nil, classifyDocument(string(models.EntityOrganization), err)
	}
	return &doc, nil
}

// Reset drops the collection.
func (m *MongoDocuments) Reset(ctx context.Context) error {
	if err := m.coll.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop %s: %w", m.coll.Name(), classifyDocument("", err))
	}
	return nil
}

func (m *MongoDocuments) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func classifyDocument(entity string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case mongo.IsDuplicateKeyError(err):
		return apperrors.NewSyncError(apperrors.KindWriteRejected, projectors.StoreDocument, entity, err)
	case mongo.IsTimeout(err):
		return apperrors.NewSyncError(apperrors.KindTimeout, projectors.StoreDocument, entity, err)
	case mongo.IsNetworkError(err):
		return apperrors.NewSyncError(apperrors.KindConnectionLost, projectors.StoreDocument, entity, err)
	}
	return dberrors.Classify(projectors.StoreDocument, entity, err)
}
