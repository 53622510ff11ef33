package data

import (
	"context"
	"fmt"
	"submission_service/internal/errdefs"
	"submission_service/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type submissionDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	Email         string             `bson:"email"`
	AssignmentURL string             `bson:"assignmentURL"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func (d *submissionDocument) toModel() *model.Submission {
	return &model.Submission{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		Email:         d.Email,
		AssignmentURL: d.AssignmentURL,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll, now: time.Now}
}

// ListSubmissions returns every record in the collection's natural order.
func (r *MongoRepository) ListSubmissions(ctx context.Context) ([]*model.Submission, error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find submissions: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []submissionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}

	submissions := make([]*model.Submission, 0, len(docs))
	for i := range docs {
		submissions = append(submissions, docs[i].toModel())
	}
	return submissions, nil
}

func (r *MongoRepository) CreateSubmission(ctx context.Context, input *model.RepositoryCreateSubmissionInput) (*model.Submission, error) {
	// BSON dates carry millisecond precision.
	now := r.now().UTC().Truncate(time.Millisecond)
	doc := submissionDocument{
		ID:            primitive.NewObjectID(),
		Name:          input.Name,
		Email:         input.Email,
		AssignmentURL: input.AssignmentURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert submission: %w: %w", errdefs.ErrPersistence, err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}
