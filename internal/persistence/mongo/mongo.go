// Package mongo provides a MongoDB-backed BookingStore.
//
// Bookings keep integer ids drawn from a counter document. Atomic
// check-then-insert for a (room, date) slot is provided by an advisory lock
// document whose _id names the slot; a second holder gets a duplicate key
// error and waits.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/room-booking/internal/persistence"
)

const (
	bookingsCollection = "bookings"
	countersCollection = "counters"
	locksCollection    = "booking_locks"

	bookingCounterID = "bookings"
)

// Config describes how to reach the database.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	// LockTTL bounds how long an abandoned slot lock blocks other writers.
	LockTTL time.Duration
	// LockRetryDelay is the initial wait between lock attempts.
	LockRetryDelay time.Duration
}

// DefaultConfig returns a Config with production timeouts.
func DefaultConfig(uri, database string) Config {
	return Config{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 10 * time.Second,
		LockTTL:        30 * time.Second,
		LockRetryDelay: 10 * time.Millisecond,
	}
}

// Storage is a persistence.BookingStore backed by MongoDB.
type Storage struct {
	client   *mongo.Client
	db       *mongo.Database
	bookings *mongo.Collection
	counters *mongo.Collection
	locks    *mongo.Collection
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

type bookingDocument struct {
	ID        int64     `bson:"_id"`
	RoomName  string    `bson:"room_name"`
	Date      string    `bson:"date"`
	StartTime string    `bson:"start_time"`
	EndTime   string    `bson:"end_time"`
	Purpose   string    `bson:"purpose"`
	CreatedAt time.Time `bson:"created_at"`
}

type slotLock struct {
	ID        string    `bson:"_id"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Open connects to MongoDB and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo: URI is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo: database name is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	defaults := DefaultConfig(cfg.URI, cfg.Database)
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.LockRetryDelay <= 0 {
		cfg.LockRetryDelay = defaults.LockRetryDelay
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return &Storage{
		client:   client,
		db:       db,
		bookings: db.Collection(bookingsCollection),
		counters: db.Collection(countersCollection),
		locks:    db.Collection(locksCollection),
		cfg:      cfg,
		logger:   logger.With("component", "mongo"),
		now:      time.Now,
	}, nil
}

// Migrate creates the indexes the store relies on. It is safe to call on
// every start.
func (s *Storage) Migrate(ctx context.Context) error {
	bookingIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "room_name", Value: 1}, {Key: "date", Value: 1}, {Key: "start_time", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}, {Key: "room_name", Value: 1}}},
	}
	if _, err := s.bookings.Indexes().CreateMany(ctx, bookingIndexes); err != nil {
		return fmt.Errorf("mongo: create booking indexes: %w", err)
	}

	lockIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := s.locks.Indexes().CreateOne(ctx, lockIndex); err != nil {
		return fmt.Errorf("mongo: create lock index: %w", err)
	}

	s.logger.Info("indexes ensured", "database", s.cfg.Database)
	return nil
}

// Close disconnects the client.
func (s *Storage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks that the primary is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Drop removes the database. Used by tests.
func (s *Storage) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// InsertBooking assigns the next id and stores the booking.
func (s *Storage) InsertBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	if booking.RoomName == "" || booking.StartTime == "" || booking.EndTime == "" || booking.Date.IsZero() {
		return persistence.Booking{}, persistence.ErrConstraintViolation
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return persistence.Booking{}, err
	}

	booking.ID = id
	booking.Date = persistence.NormalizeDate(booking.Date)
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = s.now()
	}
	booking.CreatedAt = booking.CreatedAt.UTC().Truncate(time.Millisecond)

	if _, err := s.bookings.InsertOne(ctx, toDocument(booking)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return persistence.Booking{}, fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
		}
		return persistence.Booking{}, fmt.Errorf("mongo: insert booking: %w", err)
	}
	return booking, nil
}

// FindBookingsByRoomAndDate returns the bookings of one room on one day.
func (s *Storage) FindBookingsByRoomAndDate(ctx context.Context, roomName string, date time.Time) ([]persistence.Booking, error) {
	filter := bson.M{"room_name": roomName, "date": date.Format(persistence.DateLayout)}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, filter, opts)
}

// FindBookingsByDate returns every booking on the given day ordered by start
// time, room name, and id.
func (s *Storage) FindBookingsByDate(ctx context.Context, date time.Time) ([]persistence.Booking, error) {
	filter := bson.M{"date": date.Format(persistence.DateLayout)}
	opts := options.Find().SetSort(bson.D{
		{Key: "start_time", Value: 1},
		{Key: "room_name", Value: 1},
		{Key: "_id", Value: 1},
	})
	return s.find(ctx, filter, opts)
}

// GetBooking retrieves a booking by id.
func (s *Storage) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	var doc bookingDocument
	err := s.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("mongo: find booking: %w", err)
	}
	return doc.toBooking()
}

// DeleteBooking removes a booking and reports whether it existed.
func (s *Storage) DeleteBooking(ctx context.Context, id int64) (bool, error) {
	result, err := s.bookings.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("mongo: delete booking: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// WithinSlot holds the advisory lock of (roomName, date) while fn runs. The
// lock is released on every return path.
func (s *Storage) WithinSlot(ctx context.Context, roomName string, date time.Time, fn persistence.SlotFunc) error {
	lockID := slotLockID(roomName, date)
	token, err := s.acquireSlotLock(ctx, lockID)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.releaseSlotLock(ctx, lockID, token); err != nil {
			s.logger.Warn("failed to release slot lock", "lock_id", lockID, "error", err)
		}
	}()
	return fn(s)
}

func slotLockID(roomName string, date time.Time) string {
	return fmt.Sprintf("booking_lock_%s_%s", date.Format(persistence.DateLayout), roomName)
}

// acquireSlotLock inserts the lock document and returns the token that
// identifies this holder.
func (s *Storage) acquireSlotLock(ctx context.Context, lockID string) (string, error) {
	token := uuid.NewString()
	delay := s.cfg.LockRetryDelay
	for {
		now := s.now()
		_, err := s.locks.InsertOne(ctx, slotLock{ID: lockID, Token: token, CreatedAt: now, ExpiresAt: now.Add(s.cfg.LockTTL)})
		if err == nil {
			return token, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("mongo: acquire slot lock: %w", err)
		}

		// the TTL monitor runs about once a minute; clear stale holders directly
		if _, err := s.locks.DeleteOne(ctx, bson.M{"_id": lockID, "expires_at": bson.M{"$lt": now}}); err != nil {
			return "", fmt.Errorf("mongo: clear expired slot lock: %w", err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("%w: slot %s: %v", persistence.ErrLocked, lockID, ctx.Err())
		case <-timer.C:
		}
		if delay < 250*time.Millisecond {
			delay *= 2
		}
	}
}

// releaseSlotLock deletes the lock only while it still carries token. A lock
// that expired and was taken over by another holder is left alone.
func (s *Storage) releaseSlotLock(ctx context.Context, lockID, token string) error {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_, err := s.locks.DeleteOne(releaseCtx, bson.M{"_id": lockID, "token": token})
	return err
}

func (s *Storage) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": bookingCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("mongo: next booking id: %w", err)
	}
	return counter.Seq, nil
}

func (s *Storage) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]persistence.Booking, error) {
	cursor, err := s.bookings.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode bookings: %w", err)
	}

	bookings := make([]persistence.Booking, 0, len(docs))
	for _, doc := range docs {
		booking, err := doc.toBooking()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func toDocument(b persistence.Booking) bookingDocument {
	return bookingDocument{
		ID:        b.ID,
		RoomName:  b.RoomName,
		Date:      b.DateKey(),
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Purpose:   b.Purpose,
		CreatedAt: b.CreatedAt,
	}
}

func (d bookingDocument) toBooking() (persistence.Booking, error) {
	date, err := time.Parse(persistence.DateLayout, d.Date)
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("mongo: booking %d has malformed date %q: %w", d.ID, d.Date, err)
	}
	return persistence.Booking{
		ID:        d.ID,
		RoomName:  d.RoomName,
		Date:      date,
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Purpose:   d.Purpose,
		CreatedAt: d.CreatedAt.UTC(),
	}, nil
}

var _ persistence.BookingStore = (*Storage)(nil)
