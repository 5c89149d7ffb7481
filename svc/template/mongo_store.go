package template

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongox "github.com/dmitrymomot/mailhub/pkg/mongo"
	"github.com/dmitrymomot/mailhub/svc/render"
)

// CollectionName is the MongoDB collection holding templates.
const CollectionName = "mail_templates"

// MongoStore persists templates in MongoDB with a unique compound index on
// (service_id, template_type).
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique (service_id, template_type) index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "service_id", Value: 1}, {Key: "template_type", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("service_type_unique"),
	})
	if err != nil {
		return fmt.Errorf("create %s indexes: %w", CollectionName, err)
	}
	return nil
}

type templateDocument struct {
	ID                 string           `bson:"_id"`
	ServiceID          string           `bson:"service_id"`
	TemplateType       render.EventType `bson:"template_type"`
	Subject            string           `bson:"subject"`
	HTMLTemplate       string           `bson:"html_template"`
	TextTemplate       string           `bson:"text_template,omitempty"`
	AvailableVariables []string         `bson:"available_variables"`
	IsActive           bool             `bson:"is_active"`
	CreatedAt          time.Time        `bson:"created_at"`
	UpdatedAt          time.Time        `bson:"updated_at"`
}

func (s *MongoStore) Create(ctx context.Context, t Template) error {
	if _, err := s.coll.InsertOne(ctx, templateDocument(t)); err != nil {
		if mongox.IsDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (Template, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) FindByServiceAndType(ctx context.Context, serviceID string, typ render.EventType) (Template, error) {
	return s.findOne(ctx, bson.D{
		{Key: "service_id", Value: serviceID},
		{Key: "template_type", Value: typ},
	})
}

func (s *MongoStore) ListByService(ctx context.Context, serviceID string) ([]Template, error) {
	cur, err := s.coll.Find(ctx,
		bson.D{{Key: "service_id", Value: serviceID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	var docs []templateDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	out := make([]Template, 0, len(docs))
	for _, doc := range docs {
		out = append(out, Template(doc))
	}
	return out, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, p Patch, updatedAt time.Time) error {
	fields := bson.D{{Key: "updated_at", Value: updatedAt}}
	if p.Subject != nil {
		fields = append(fields, bson.E{Key: "subject", Value: *p.Subject})
	}
	if p.HTMLTemplate != nil {
		fields = append(fields, bson.E{Key: "html_template", Value: *p.HTMLTemplate})
	}
	if p.TextTemplate != nil {
		fields = append(fields, bson.E{Key: "text_template", Value: *p.TextTemplate})
	}
	if p.AvailableVariables != nil {
		fields = append(fields, bson.E{Key: "available_variables", Value: *p.AvailableVariables})
	}
	if p.IsActive != nil {
		fields = append(fields, bson.E{Key: "is_active", Value: *p.IsActive})
	}

	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D) (Template, error) {
	var doc templateDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Template{}, ErrNotFound
		}
		return Template{}, fmt.Errorf("find template: %w", err)
	}
	return Template(doc), nil
}
