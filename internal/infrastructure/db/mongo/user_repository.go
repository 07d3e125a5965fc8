package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/natours/auth-api/internal/core/domain"
)

const usersCollection = "users"

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Name                 string             `bson:"name"`
	Email                string             `bson:"email"`
	Photo                string             `bson:"photo,omitempty"`
	Role                 string             `bson:"role"`
	GoogleID             string             `bson:"google_id,omitempty"`
	Password             string             `bson:"password"`
	PasswordChangedAt    *time.Time         `bson:"password_changed_at,omitempty"`
	PasswordResetToken   string             `bson:"password_reset_token,omitempty"`
	PasswordResetExpires *time.Time         `bson:"password_reset_expires,omitempty"`
	Active               *bool              `bson:"active,omitempty"`
	CreatedAt            time.Time          `bson:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at"`
}

// activeOnly excludes deactivated users. Documents without the field count as
// active.
var activeOnly = bson.E{Key: "active", Value: bson.M{"$ne": false}}

// EnsureIndexes creates the unique email index and the reset-token lookup index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "password_reset_token", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}, activeOnly})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}, activeOnly})
}

func (r *UserRepository) FindByResetToken(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	if hash == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.D{
		{Key: "password_reset_token", Value: hash},
		{Key: "password_reset_expires", Value: bson.M{"$gt": now.UTC()}},
		activeOnly,
	})
}

// ConsumeResetToken claims the reset token with a single FindOneAndUpdate so
// concurrent requests cannot both redeem it.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, hash string, change domain.PasswordChange) (*domain.User, error) {
	if hash == "" {
		return nil, domain.ErrUserNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.D{
		{Key: "password_reset_token", Value: hash},
		{Key: "password_reset_expires", Value: bson.M{"$gt": change.At.UTC()}},
		activeOnly,
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: change.Hash},
			{Key: "password_changed_at", Value: change.ChangedAt().UTC()},
			{Key: "updated_at", Value: change.At.UTC()},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "password_reset_token", Value: ""},
			{Key: "password_reset_expires", Value: ""},
		}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoUser
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	return toDomainUser(doc), nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return toDomainUser(doc), nil
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return fmt.Errorf("save user: invalid id %q", user.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	doc.ID = oid
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("replace user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.D{activeOnly}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, toDomainUser(docs[i]))
	}
	return users, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return toDomainUser(doc), nil
}

func toMongoUser(u *domain.User) mongoUser {
	active := u.Active
	return mongoUser{
		Name:                 u.Name,
		Email:                u.Email,
		Photo:                u.Photo,
		Role:                 u.Role,
		GoogleID:             u.GoogleID,
		Password:             u.PasswordHash,
		PasswordChangedAt:    u.PasswordChangedAt,
		PasswordResetToken:   u.PasswordResetToken,
		PasswordResetExpires: u.PasswordResetExpires,
		Active:               &active,
		CreatedAt:            u.CreatedAt.UTC(),
		UpdatedAt:            u.UpdatedAt.UTC(),
	}
}

func toDomainUser(doc mongoUser) *domain.User {
	return &domain.User{
		ID:                   doc.ID.Hex(),
		Name:                 doc.Name,
		Email:                doc.Email,
		Photo:                doc.Photo,
		Role:                 doc.Role,
		GoogleID:             doc.GoogleID,
		PasswordHash:         doc.Password,
		PasswordChangedAt:    utcPtr(doc.PasswordChangedAt),
		PasswordResetToken:   doc.PasswordResetToken,
		PasswordResetExpires: utcPtr(doc.PasswordResetExpires),
		Active:               doc.Active == nil || *doc.Active,
		CreatedAt:            doc.CreatedAt.UTC(),
		UpdatedAt:            doc.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
