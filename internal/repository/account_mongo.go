package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "candlux/internal/errors"
	"candlux/internal/model"
)

// AccountsCollection is the collection holding account documents.
const AccountsCollection = "accounts"

// MongoAccountRepository stores one document per account.
type MongoAccountRepository struct {
	col *mongo.Collection
}

var _ AccountRepository = (*MongoAccountRepository)(nil)

// NewMongoAccountRepository creates a Mongo-backed account repository.
func NewMongoAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{col: db.Collection(AccountsCollection)}
}

// EnsureIndexes creates the unique email and phone indexes.
func (r *MongoAccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_1")},
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetName("phone_1")},
	})
	return err
}

func (r *MongoAccountRepository) Create(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := r.col.InsertOne(ctx, account)
	if mongo.IsDuplicateKeyError(err) {
		return duplicateFromMessage(err.Error())
	}
	return err
}

func (r *MongoAccountRepository) Update(ctx context.Context, account *model.Account) error {
	account.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": account.ID}, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateFromMessage(err.Error())
		}
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *MongoAccountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoAccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoAccountRepository) FindByEmailOrPhone(ctx context.Context, email, phone string) (*model.Account, error) {
	account, err := r.FindByEmail(ctx, email)
	if !errors.Is(err, apperrors.ErrNotFound) {
		return account, err
	}
	return r.findOne(ctx, bson.M{"phone": phone})
}

func (r *MongoAccountRepository) List(ctx context.Context) ([]model.Account, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	accounts := make([]model.Account, 0)
	if err := cur.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *MongoAccountRepository) ReplaceOTP(ctx context.Context, id string, prevHash *string, hash string, expiry time.Time) error {
	// {otp: nil} matches both a null and a missing field.
	filter := bson.M{"_id": id, "otp": nil}
	if prevHash != nil {
		filter["otp"] = *prevHash
	}
	update := bson.M{"$set": bson.M{
		"otp":       hash,
		"otpExpiry": expiry,
		"updatedAt": time.Now().UTC(),
	}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *MongoAccountRepository) MarkVerified(ctx context.Context, id, otpHash string) error {
	filter := bson.M{"_id": id, "otp": otpHash, "isVerified": false}
	update := bson.M{
		"$set":   bson.M{"isVerified": true, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"otp": "", "otpExpiry": ""},
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *MongoAccountRepository) findOne(ctx context.Context, filter bson.M) (*model.Account, error) {
	var account model.Account
	err := r.col.FindOne(ctx, filter).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
