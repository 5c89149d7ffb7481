package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongox "github.com/dmitrymomot/mailhub/pkg/mongo"
)

// CollectionName is the MongoDB collection holding tenant records.
const CollectionName = "mail_services"

// SecretCipher seals credentials at rest. *secrets.Cipher implements it.
type SecretCipher interface {
	Encrypt(scope, plaintext string) (string, error)
	Decrypt(scope, value string) (string, error)
}

// MongoStore persists tenants in MongoDB. A unique index on service_key
// backs the registry's existence check.
type MongoStore struct {
	coll   *mongo.Collection
	cipher SecretCipher
}

// NewMongoStore returns a store over db's mail_services collection.
// When cipher is non-nil the SMTP password is encrypted with the service
// key as scope.
func NewMongoStore(db *mongo.Database, cipher SecretCipher) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName), cipher: cipher}
}

// EnsureIndexes creates the unique service key index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "service_key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("service_key_unique"),
	})
	if err != nil {
		return fmt.Errorf("create %s indexes: %w", CollectionName, err)
	}
	return nil
}

type tenantDocument struct {
	ID                 string    `bson:"_id"`
	ServiceKey         string    `bson:"service_key"`
	ServiceName        string    `bson:"service_name"`
	ServiceDescription string    `bson:"service_description,omitempty"`
	FrontendURL        string    `bson:"frontend_url"`
	LogoURL            string    `bson:"logo_url,omitempty"`
	SMTPHost           string    `bson:"smtp_host"`
	SMTPPort           int       `bson:"smtp_port"`
	SMTPSecure         bool      `bson:"smtp_secure"`
	SMTPUser           string    `bson:"smtp_user"`
	SMTPPassword       string    `bson:"smtp_password"`
	SenderName         string    `bson:"sender_name,omitempty"`
	SenderEmail        string    `bson:"sender_email,omitempty"`
	PrimaryColor       string    `bson:"primary_color,omitempty"`
	SecondaryColor     string    `bson:"secondary_color,omitempty"`
	BackgroundColor    string    `bson:"background_color,omitempty"`
	CardColor          string    `bson:"card_color,omitempty"`
	TextColor          string    `bson:"text_color,omitempty"`
	MutedTextColor     string    `bson:"muted_text_color,omitempty"`
	IsActive           bool      `bson:"is_active"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

func (s *MongoStore) Create(ctx context.Context, t Tenant) error {
	password, err := s.seal(t.ServiceKey, t.SMTPPassword)
	if err != nil {
		return err
	}

	doc := tenantDocument(t)
	doc.SMTPPassword = password
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongox.IsDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert mail service: %w", err)
	}
	return nil
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (Tenant, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) FindByKey(ctx context.Context, serviceKey string) (Tenant, error) {
	return s.findOne(ctx, bson.D{{Key: "service_key", Value: serviceKey}})
}

// List returns tenants ordered by creation time.
func (s *MongoStore) List(ctx context.Context) ([]Tenant, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list mail services: %w", err)
	}

	var docs []tenantDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode mail services: %w", err)
	}

	out := make([]Tenant, 0, len(docs))
	for _, doc := range docs {
		t, err := s.toTenant(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, p Patch, updatedAt time.Time) error {
	fields := bson.D{{Key: "updated_at", Value: updatedAt}}
	add := func(key string, v any) { fields = append(fields, bson.E{Key: key, Value: v}) }

	addString := func(key string, v *string) {
		if v != nil {
			add(key, *v)
		}
	}
	addString("service_name", p.ServiceName)
	addString("service_description", p.ServiceDescription)
	addString("frontend_url", p.FrontendURL)
	addString("logo_url", p.LogoURL)
	addString("smtp_host", p.SMTPHost)
	addString("smtp_user", p.SMTPUser)
	addString("sender_name", p.SenderName)
	addString("sender_email", p.SenderEmail)
	addString("primary_color", p.PrimaryColor)
	addString("secondary_color", p.SecondaryColor)
	addString("background_color", p.BackgroundColor)
	addString("card_color", p.CardColor)
	addString("text_color", p.TextColor)
	addString("muted_text_color", p.MutedTextColor)
	if p.SMTPPort != nil {
		add("smtp_port", *p.SMTPPort)
	}
	if p.SMTPSecure != nil {
		add("smtp_secure", *p.SMTPSecure)
	}
	if p.IsActive != nil {
		add("is_active", *p.IsActive)
	}

	if p.SMTPPassword != nil {
		// the scope is the immutable service key, read from the stored record
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		password, err := s.seal(current.ServiceKey, *p.SMTPPassword)
		if err != nil {
			return err
		}
		add("smtp_password", password)
	}

	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return fmt.Errorf("update mail service: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete mail service: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D) (Tenant, error) {
	var doc tenantDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, fmt.Errorf("find mail service: %w", err)
	}
	return s.toTenant(doc)
}

func (s *MongoStore) toTenant(doc tenantDocument) (Tenant, error) {
	t := Tenant(doc)
	if s.cipher != nil {
		password, err := s.cipher.Decrypt(doc.ServiceKey, doc.SMTPPassword)
		if err != nil {
			return Tenant{}, fmt.Errorf("decrypt smtp password for %q: %w", doc.ServiceKey, err)
		}
		t.SMTPPassword = password
	}
	return t, nil
}

func (s *MongoStore) seal(serviceKey, password string) (string, error) {
	if s.cipher == nil {
		return password, nil
	}
	sealed, err := s.cipher.Encrypt(serviceKey, password)
	if err != nil {
		return "", fmt.Errorf("encrypt smtp password for %q: %w", serviceKey, err)
	}
	return sealed, nil
}
