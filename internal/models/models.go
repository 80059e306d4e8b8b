package models

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("record not found")

type Models struct {
	User    UserModel
	Product ProductModel
	Order   OrderModel
}

func NewModels(db *mongo.Database) Models {
	return Models{
		User:    UserModel{Coll: db.Collection("users")},
		Product: ProductModel{Coll: db.Collection("products")},
		Order:   OrderModel{Coll: db.Collection("orders")},
	}
}
