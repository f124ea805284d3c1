package mongo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	db_models "ngmc-chatbot-backend/internal/models"
	"ngmc-chatbot-backend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure MongoStore implements store.Store
var _ store.Store = (*MongoStore)(nil)

// MongoStore is the document-store backend. Chat and turn identifiers are
// 24-character hex ObjectIDs; malformed identifiers map to store.ErrNotFound.
type MongoStore struct {
	chats *mongo.Collection
	turns *mongo.Collection
	users *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		chats: db.Collection("chats"),
		turns: db.Collection("conversations"),
		users: db.Collection("users"),
	}
}

type chatDoc struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	Title     string              `bson:"title"`
	OwnerID   *primitive.ObjectID `bson:"owner_id,omitempty"`
	CreatedAt time.Time           `bson:"created_at"`
}

type turnDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ChatID    primitive.ObjectID `bson:"chat_id"`
	Role      string             `bson:"role"`
	Message   string             `bson:"message"`
	CreatedAt time.Time          `bson:"created_at"`
}

type userDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Name           string             `bson:"name"`
	Email          string             `bson:"email"`
	HashedPassword string             `bson:"hashed_password"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// --- Chat Methods ---

// CreateChat inserts a new chat and returns it with its store-assigned ID.
func (s *MongoStore) CreateChat(ctx context.Context, arg store.CreateChatParams) (*db_models.Chat, error) {
	log.Printf("[MongoStore] CreateChat called, title: %q", arg.Title)
	doc := chatDoc{
		ID:        primitive.NewObjectID(),
		Title:     arg.Title,
		CreatedAt: time.Now().UTC(),
	}
	if arg.OwnerID != nil {
		owner, err := primitive.ObjectIDFromHex(*arg.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("invalid owner id %q: %w", *arg.OwnerID, err)
		}
		doc.OwnerID = &owner
	}

	if _, err := s.chats.InsertOne(ctx, doc); err != nil {
		log.Printf("ERROR [MongoStore] CreateChat: Failed insert: %v", err)
		return nil, fmt.Errorf("database error creating chat: %w", err)
	}

	log.Printf("[MongoStore] CreateChat: Successfully inserted chat ID %s", doc.ID.Hex())
	return chatFromDoc(doc), nil
}

// GetChatByID retrieves a chat by its hex ObjectID.
// Returns store.ErrNotFound for unknown or malformed identifiers.
func (s *MongoStore) GetChatByID(ctx context.Context, id string) (*db_models.Chat, error) {
	chatID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		log.Printf("[MongoStore] GetChatByID: malformed chat ID %q", id)
		return nil, store.ErrNotFound
	}

	var doc chatDoc
	err = s.chats.FindOne(ctx, bson.M{"_id": chatID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [MongoStore] GetChatByID: Failed query for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching chat: %w", err)
	}
	return chatFromDoc(doc), nil
}

// ListChats retrieves all chats, newest first.
func (s *MongoStore) ListChats(ctx context.Context) ([]db_models.Chat, error) {
	return s.findChats(ctx, bson.M{})
}

// ListChatsForOwner retrieves the chats owned by the given user, newest first.
func (s *MongoStore) ListChatsForOwner(ctx context.Context, ownerID string) ([]db_models.Chat, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, store.ErrNotFound
	}
	return s.findChats(ctx, bson.M{"owner_id": owner})
}

func (s *MongoStore) findChats(ctx context.Context, filter bson.M) ([]db_models.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.chats.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("ERROR [MongoStore] findChats: Failed query: %v", err)
		return nil, fmt.Errorf("database error listing chats: %w", err)
	}
	defer cursor.Close(ctx)

	chats := []db_models.Chat{}
	for cursor.Next(ctx) {
		var doc chatDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("database error decoding chat: %w", err)
		}
		chats = append(chats, *chatFromDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating chats: %w", err)
	}
	return chats, nil
}

// UpdateChatTitle mutates only the chat's title.
func (s *MongoStore) UpdateChatTitle(ctx context.Context, id, title string) error {
	chatID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}

	res, err := s.chats.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{"$set": bson.M{"title": title}})
	if err != nil {
		log.Printf("ERROR [MongoStore] UpdateChatTitle: Failed update for ID %s: %v", id, err)
		return fmt.Errorf("database error updating chat title: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetChatOwner attaches an owner to a chat.
func (s *MongoStore) SetChatOwner(ctx context.Context, id, ownerID string) error {
	chatID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return fmt.Errorf("invalid owner id %q: %w", ownerID, err)
	}

	res, err := s.chats.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{"$set": bson.M{"owner_id": owner}})
	if err != nil {
		log.Printf("ERROR [MongoStore] SetChatOwner: Failed update for ID %s: %v", id, err)
		return fmt.Errorf("database error setting chat owner: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	log.Printf("[MongoStore] SetChatOwner: chat %s now owned by %s", id, ownerID)
	return nil
}

// DeleteChat removes a chat and cascades to its turns.
func (s *MongoStore) DeleteChat(ctx context.Context, id string) error {
	chatID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}

	res, err := s.chats.DeleteOne(ctx, bson.M{"_id": chatID})
	if err != nil {
		log.Printf("ERROR [MongoStore] DeleteChat: Failed delete for ID %s: %v", id, err)
		return fmt.Errorf("database error deleting chat: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}

	// Cascade: the chat exclusively owns its turns.
	if _, err := s.turns.DeleteMany(ctx, bson.M{"chat_id": chatID}); err != nil {
		log.Printf("ERROR [MongoStore] DeleteChat: Failed cascade delete for chat %s: %v", id, err)
		return fmt.Errorf("database error deleting chat turns: %w", err)
	}
	log.Printf("[MongoStore] DeleteChat: Successfully deleted chat ID %s", id)
	return nil
}

// --- Conversation Turn Methods ---

// AppendTurns appends the given turns with a single ordered InsertMany so the
// user/assistant pair lands as one multi-document insert.
func (s *MongoStore) AppendTurns(ctx context.Context, chatID string, turns []store.TurnParams) error {
	if len(turns) == 0 {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return store.ErrNotFound
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		docs = append(docs, turnDoc{
			ID:        primitive.NewObjectID(),
			ChatID:    id,
			Role:      string(turn.Role),
			Message:   turn.Message,
			CreatedAt: now,
		})
	}

	if _, err := s.turns.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		log.Printf("ERROR [MongoStore] AppendTurns: Failed insert for chat %s: %v", chatID, err)
		return fmt.Errorf("database error appending turns: %w", err)
	}
	log.Printf("[MongoStore] AppendTurns: Appended %d turn(s) to chat %s", len(turns), chatID)
	return nil
}

// ListTurns returns every turn of a chat in chronological order.
// ObjectIDs are generated in insertion order, so _id sorts the sequence even
// when a pair shares one append timestamp.
func (s *MongoStore) ListTurns(ctx context.Context, chatID string) ([]db_models.ConversationTurn, error) {
	id, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, store.ErrNotFound
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return s.findTurns(ctx, bson.M{"chat_id": id}, opts, false)
}

// LastNTurns selects the n most recent turns, then returns them in
// chronological order.
func (s *MongoStore) LastNTurns(ctx context.Context, chatID string, n int) ([]db_models.ConversationTurn, error) {
	id, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, store.ErrNotFound
	}
	if n <= 0 {
		return []db_models.ConversationTurn{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(n))
	return s.findTurns(ctx, bson.M{"chat_id": id}, opts, true)
}

func (s *MongoStore) findTurns(ctx context.Context, filter bson.M, opts *options.FindOptions, reverse bool) ([]db_models.ConversationTurn, error) {
	cursor, err := s.turns.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("ERROR [MongoStore] findTurns: Failed query: %v", err)
		return nil, fmt.Errorf("database error listing turns: %w", err)
	}
	defer cursor.Close(ctx)

	turns := []db_models.ConversationTurn{}
	for cursor.Next(ctx) {
		var doc turnDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("database error decoding turn: %w", err)
		}
		turns = append(turns, db_models.ConversationTurn{
			ID:        doc.ID.Hex(),
			ChatID:    doc.ChatID.Hex(),
			Role:      db_models.Role(doc.Role),
			Message:   doc.Message,
			CreatedAt: doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating turns: %w", err)
	}

	if reverse {
		for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
			turns[i], turns[j] = turns[j], turns[i]
		}
	}
	return turns, nil
}

// --- User Methods ---

// UpsertUser inserts a user keyed by email, or updates name and credential in
// place when the email is already known.
func (s *MongoStore) UpsertUser(ctx context.Context, arg store.UpsertUserParams) (*db_models.User, error) {
	log.Printf("[MongoStore] UpsertUser called for: %s", arg.Email)
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":            arg.Name,
			"hashed_password": arg.HashedPassword,
			"updated_at":      now,
		},
		"$setOnInsert": bson.M{
			"email":      arg.Email,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc userDoc
	err := s.users.FindOneAndUpdate(ctx, bson.M{"email": arg.Email}, update, opts).Decode(&doc)
	if err != nil {
		log.Printf("ERROR [MongoStore] UpsertUser: Failed upsert for email %s: %v", arg.Email, err)
		return nil, fmt.Errorf("database error upserting user: %w", err)
	}

	log.Printf("[MongoStore] UpsertUser: Stored user ID %s for email %s", doc.ID.Hex(), doc.Email)
	return userFromDoc(doc), nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*db_models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [MongoStore] GetUserByEmail: Failed query for email %s: %v", email, err)
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}
	return userFromDoc(doc), nil
}

func chatFromDoc(doc chatDoc) *db_models.Chat {
	chat := &db_models.Chat{
		ID:        doc.ID.Hex(),
		Title:     doc.Title,
		CreatedAt: doc.CreatedAt,
	}
	if doc.OwnerID != nil {
		owner := doc.OwnerID.Hex()
		chat.OwnerID = &owner
	}
	return chat
}

func userFromDoc(doc userDoc) *db_models.User {
	return &db_models.User{
		ID:             doc.ID.Hex(),
		Name:           doc.Name,
		Email:          doc.Email,
		HashedPassword: doc.HashedPassword,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}
