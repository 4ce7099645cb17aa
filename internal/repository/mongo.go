package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection        = "users"
	appointmentsCollection = "appointments"
	messagesCollection     = "messages"

	emailIndex = "email_unique"
	slotIndex  = "held_slot_unique"
)

// Connect opens a client and pings the primary.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique indexes the booking rules depend on. The
// slot index is partial: only appointments that still hold their slot take
// part, so a Rejected booking frees the slot for a new one.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(emailIndex),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	_, err = db.Collection(appointmentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "department", Value: 1},
				{Key: "doctorId", Value: 1},
				{Key: "appointment_date", Value: 1},
				{Key: "select_time", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName(slotIndex).
				SetPartialFilterExpression(bson.M{"slotHeld": true}),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_lookup"),
		},
	})
	if err != nil {
		return fmt.Errorf("create appointments indexes: %w", err)
	}
	return nil
}
