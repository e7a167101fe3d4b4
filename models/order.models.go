package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LineItem is the immutable copy of a cart item taken when the order is placed.
type LineItem struct {
	Brand    string  `bson:"brand" json:"brand"`
	Price    float64 `bson:"price" json:"price"`
	Quantity int     `bson:"quantity" json:"quantity"`
}

// Order represents a user's placed order
type Order struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Items     []LineItem         `bson:"items" json:"items"`
	Total     float64            `bson:"total" json:"total"`
	Address   string             `bson:"address" json:"address"`
	Mobile    string             `bson:"mobile" json:"mobile"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
