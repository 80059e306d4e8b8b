package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nhminh/microshop/internal/validator"
)

// ErrDuplicateUsername is returned on registration with a taken username.
var ErrDuplicateUsername = errors.New("username already taken")

type User struct {
	ID           uuid.UUID `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	PasswordHash []byte    `bson:"password" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"created_at"`
}

func ValidateCredentials(v *validator.Validator, username, password string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(password != "", "password", "must be provided")
	v.Check(len(password) >= 6, "password", "must be at least 6 characters long")
}

// UserModel is a wrapper for the users collection.
type UserModel struct {
	Coll *mongo.Collection
}

func (m UserModel) Insert(ctx context.Context, user *User) error {
	err := m.Coll.FindOne(ctx, bson.M{"username": user.Username}).Err()
	if err == nil {
		return ErrDuplicateUsername
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	_, err = m.Coll.InsertOne(ctx, user)
	return err
}

func (m UserModel) GetByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := m.Coll.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
