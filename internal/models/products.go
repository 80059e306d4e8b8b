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

type Product struct {
	ID          uuid.UUID `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Price       float64   `bson:"price" json:"price"`
	Description string    `bson:"description" json:"description"`
	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
}

func ValidateProduct(v *validator.Validator, product *Product) {
	v.Check(product.Name != "", "name", "must be provided")
	v.Check(product.Price > 0, "price", "must be greater than zero")
}

// ProductModel is a wrapper for the products collection.
type ProductModel struct {
	Coll *mongo.Collection
}

func (m ProductModel) Insert(ctx context.Context, product *Product) error {
	_, err := m.Coll.InsertOne(ctx, product)
	return err
}

func (m ProductModel) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	var product Product
	err := m.Coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (m ProductModel) GetAll(ctx context.Context) ([]*Product, error) {
	cursor, err := m.Coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []*Product{}
	for cursor.Next(ctx) {
		var product Product
		if err := cursor.Decode(&product); err != nil {
			return nil, err
		}
		products = append(products, &product)
	}
	return products, cursor.Err()
}

// GetMany fetches the products for a list of ids, preserving request order.
// A missing id yields ErrNotFound.
func (m ProductModel) GetMany(ctx context.Context, ids []uuid.UUID) ([]*Product, error) {
	cursor, err := m.Coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	byID := make(map[uuid.UUID]*Product, len(ids))
	for cursor.Next(ctx) {
		var product Product
		if err := cursor.Decode(&product); err != nil {
			return nil, err
		}
		byID[product.ID] = &product
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	products := make([]*Product, 0, len(ids))
	for _, id := range ids {
		product, ok := byID[id]
		if !ok {
			return nil, ErrNotFound
		}
		products = append(products, product)
	}
	return products, nil
}

func (m ProductModel) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := m.Coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
