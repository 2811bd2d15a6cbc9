// File: database/repository/session/sessionMongoCrud.go
package sessionRepo

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// GetByPhone retrieves a session document by phone number.
func (r *MongoSessionRepo) GetByPhone(phone string) (*models.BookingSession, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var session models.BookingSession
	err := r.coll.FindOne(ctx, bson.M{"phone": phone}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session for phone %s: %w", phone, err)
	}
	return &session, nil
}

// GetByBookingRef retrieves a session document by its payment correlation ref.
func (r *MongoSessionRepo) GetByBookingRef(ref string) (*models.BookingSession, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var session models.BookingSession
	err := r.coll.FindOne(ctx, bson.M{"bookingRef": ref}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session for booking ref %s: %w", ref, err)
	}
	return &session, nil
}

// Create inserts a new session document.
func (r *MongoSessionRepo) Create(session *models.BookingSession) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Update replaces the stored session document wholesale. A $set of the
// struct would silently drop zero-valued fields (they carry omitempty), so
// an in-memory clear of timeSlot or bookingRef would never reach storage;
// replacement makes cleared fields cleared.
func (r *MongoSessionRepo) Update(session *models.BookingSession) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	session.UpdatedAt = time.Now()

	result, err := r.coll.ReplaceOne(ctx, bson.M{"phone": session.Phone}, session)
	if err != nil {
		return fmt.Errorf("failed to update session for phone %s: %w", session.Phone, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session for phone %s not found", session.Phone)
	}
	return nil
}

// SetLastProcessedMessageID records a processed message id with a dedicated
// $set, so the idempotency marker is durable before any other side effect.
func (r *MongoSessionRepo) SetLastProcessedMessageID(phone, messageID string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"phone": phone}
	update := bson.M{"$set": bson.M{
		"lastProcessedMessageId": messageID,
		"updatedAt":              time.Now(),
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to record message id for phone %s: %w", phone, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session for phone %s not found", phone)
	}
	return nil
}

// Delete removes a session document by phone number.
func (r *MongoSessionRepo) Delete(phone string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"phone": phone})
	if err != nil {
		return fmt.Errorf("failed to delete session for phone %s: %w", phone, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("session for phone %s not found", phone)
	}
	return nil
}
