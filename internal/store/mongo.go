package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rohan357015/raja-mantri-game/internal/core"
	"github.com/Rohan357015/raja-mantri-game/internal/domain"
)

const mongoOpTimeout = 5 * time.Second

// playerDocument mirrors domain.Player for persistence.
type playerDocument struct {
	UserID   string    `bson:"user_id"`
	Name     string    `bson:"name"`
	IsHost   bool      `bson:"is_host"`
	JoinedAt time.Time `bson:"joined_at"`
}

type roomDocument struct {
	Code       string           `bson:"room_code"`
	HostID     string           `bson:"host_id"`
	HostName   string           `bson:"host_name"`
	Round      int              `bson:"round"`
	Players    []playerDocument `bson:"players"`
	MaxPlayers int              `bson:"max_players"`
	Status     string           `bson:"status"`
	CreatedAt  time.Time        `bson:"created_at"`
	StartedAt  *time.Time       `bson:"started_at,omitempty"`
	UpdatedAt  time.Time        `bson:"updated_at"`
}

type userDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	RoomCode  string    `bson:"room_code,omitempty"`
	InRoom    bool      `bson:"in_room"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (doc *roomDocument) toRoom() *domain.Room {
	room := &domain.Room{
		Code:       doc.Code,
		HostID:     domain.UserID(doc.HostID),
		HostName:   doc.HostName,
		Round:      doc.Round,
		MaxPlayers: doc.MaxPlayers,
		Status:     domain.Status(doc.Status),
		CreatedAt:  doc.CreatedAt,
		StartedAt:  doc.StartedAt,
		Players:    make([]domain.Player, 0, len(doc.Players)),
	}
	for _, p := range doc.Players {
		room.Players = append(room.Players, domain.Player{
			UserID:   domain.UserID(p.UserID),
			Name:     p.Name,
			IsHost:   p.IsHost,
			JoinedAt: p.JoinedAt,
		})
	}
	return room
}

func fromRoom(room *domain.Room) *roomDocument {
	doc := &roomDocument{
		Code:       room.Code,
		HostID:     string(room.HostID),
		HostName:   room.HostName,
		Round:      room.Round,
		MaxPlayers: room.MaxPlayers,
		Status:     string(room.Status),
		CreatedAt:  room.CreatedAt,
		StartedAt:  room.StartedAt,
		UpdatedAt:  time.Now(),
		Players:    make([]playerDocument, 0, len(room.Players)),
	}
	for _, p := range room.Players {
		doc.Players = append(doc.Players, playerDocument{
			UserID:   string(p.UserID),
			Name:     p.Name,
			IsHost:   p.IsHost,
			JoinedAt: p.JoinedAt,
		})
	}
	return doc
}

// MongoStore is the durable RoomStore backing.
type MongoStore struct {
	rooms *mongo.Collection
	users *mongo.Collection
	codes CodeGenerator
}

func NewMongoStore(db *mongo.Database, codes CodeGenerator) *MongoStore {
	return &MongoStore{
		rooms: db.Collection("rooms"),
		users: db.Collection("users"),
		codes: codes,
	}
}

var _ core.RoomStore = (*MongoStore)(nil)

// EnsureIndexes creates the unique room_code index the collision-retry
// loop in CreateRoom relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	_, err := s.rooms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create room_code index: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, name, roomCode string) (*domain.User, error) {
	user, err := domain.NewUser(name)
	if err != nil {
		return nil, err
	}
	if roomCode != "" {
		user.RoomCode = domain.NormalizeCode(roomCode)
		user.InRoom = true
	}

	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	doc := &userDocument{
		ID:        string(user.ID),
		Name:      user.Name,
		RoomCode:  user.RoomCode,
		InRoom:    user.InRoom,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.CreatedAt,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return nil, storeErr("insert user", err)
	}
	return user, nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	var doc userDocument
	err := s.users.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, storeErr("find user", err)
	}
	return &domain.User{
		ID:        domain.UserID(doc.ID),
		Name:      doc.Name,
		RoomCode:  doc.RoomCode,
		InRoom:    doc.InRoom,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *MongoStore) SaveUser(ctx context.Context, user *domain.User) error {
	if err := domain.ValidateName(user.Name); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	update := bson.M{"$set": bson.M{
		"name":       user.Name,
		"room_code":  user.RoomCode,
		"in_room":    user.InRoom,
		"updated_at": time.Now(),
	}}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": string(user.ID)}, update)
	if err != nil {
		return storeErr("update user", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// CreateRoom inserts with a fresh code and leans on the unique index:
// a duplicate-key error means a collision, so generate again.
func (s *MongoStore) CreateRoom(ctx context.Context, host *domain.User, round, maxPlayers int) (*domain.Room, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room, err := domain.NewRoom(s.codes.Generate(), host, round, maxPlayers)
		if err != nil {
			return nil, err
		}

		opCtx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
		_, err = s.rooms.InsertOne(opCtx, fromRoom(room))
		cancel()
		if mongo.IsDuplicateKeyError(err) {
			log.Warn().Str("module", "store.mongo").Str("code", room.Code).Msg("room code collision, retrying")
			continue
		}
		if err != nil {
			return nil, storeErr("insert room", err)
		}
		return room, nil
	}
	return nil, domain.ErrStoreUnavailable
}

func (s *MongoStore) FindRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	code = domain.NormalizeCode(code)
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	var doc roomDocument
	err := s.rooms.FindOne(ctx, bson.M{"room_code": code}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, storeErr("find room", err)
	}
	return doc.toRoom(), nil
}

func (s *MongoStore) SaveRoom(ctx context.Context, room *domain.Room) error {
	if err := room.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	res, err := s.rooms.ReplaceOne(ctx, bson.M{"room_code": room.Code}, fromRoom(room))
	if err != nil {
		return storeErr("replace room", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *MongoStore) DeleteRoom(ctx context.Context, code string) error {
	code = domain.NormalizeCode(code)
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	if _, err := s.rooms.DeleteOne(ctx, bson.M{"room_code": code}); err != nil {
		return storeErr("delete room", err)
	}
	return nil
}

func (s *MongoStore) PurgeStale(ctx context.Context, cutoff time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*mongoOpTimeout)
	defer cancel()

	roomFilter := bson.M{"$or": bson.A{
		bson.M{"status": string(domain.StatusFinished)},
		bson.M{"status": string(domain.StatusWaiting), "created_at": bson.M{"$lt": cutoff}},
	}}
	rooms, err := s.rooms.DeleteMany(ctx, roomFilter)
	if err != nil {
		return 0, storeErr("purge rooms", err)
	}

	userFilter := bson.M{"in_room": false, "created_at": bson.M{"$lt": cutoff}}
	users, err := s.users.DeleteMany(ctx, userFilter)
	if err != nil {
		return int(rooms.DeletedCount), storeErr("purge users", err)
	}
	return int(rooms.DeletedCount + users.DeletedCount), nil
}

func (s *MongoStore) RoomCount(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	count, err := s.rooms.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, storeErr("count rooms", err)
	}
	return int(count), nil
}

// storeErr keeps transport failures behind one retryable sentinel.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStoreUnavailable)
}
