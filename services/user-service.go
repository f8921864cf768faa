package services

import (
	"context"
	"html"
	"time"

	"team-collab/backend/models"
	"team-collab/backend/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserService struct {
	usersCollection *mongo.Collection
}

func NewUserService(usersCollection *mongo.Collection) *UserService {
	return &UserService{usersCollection: usersCollection}
}

// RegisterUser stores a new active user with a hashed password and returns
// it together with a signed token.
func (s *UserService) RegisterUser(ctx context.Context, username, email, password, fullName string) (*models.User, string, error) {
	var existing models.User
	err := s.usersCollection.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}}).Decode(&existing)
	if err == nil {
		return nil, "", models.NewValidationError("user with this email or username already exists")
	}
	if err != mongo.ErrNoDocuments {
		return nil, "", models.NewPersistenceError("check existing user", err)
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", models.NewValidationError("failed to hash password")
	}

	now := time.Now()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Username:  html.EscapeString(username),
		Email:     html.EscapeString(email),
		Password:  hashed,
		FullName:  html.EscapeString(fullName),
		Role:      "user",
		IsActive:  true,
		Projects:  []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.usersCollection.InsertOne(ctx, user); err != nil {
		return nil, "", models.NewPersistenceError("save user", err)
	}

	token, err := utils.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, "", models.NewAuthenticationError("failed to issue token")
	}
	return user, token, nil
}

// Login resolves the identifier as email or username, checks the password
// and records the login time.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*models.User, string, error) {
	var user models.User
	err := s.usersCollection.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": identifier},
		bson.M{"username": identifier},
	}}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, "", models.NewAuthenticationError("invalid credentials")
	}
	if err != nil {
		return nil, "", models.NewPersistenceError("look up user", err)
	}

	if !user.IsActive {
		return nil, "", models.NewAuthenticationError("account is deactivated")
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, "", models.NewAuthenticationError("invalid credentials")
	}

	now := time.Now()
	user.LastLogin = &now
	if _, err := s.usersCollection.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"lastLogin": now}}); err != nil {
		return nil, "", models.NewPersistenceError("record login", err)
	}

	token, err := utils.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, "", models.NewAuthenticationError("failed to issue token")
	}
	return &user, token, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.usersCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("user")
	}
	if err != nil {
		return nil, models.NewPersistenceError("fetch user", err)
	}
	return &user, nil
}

// UpdateProfile changes fullName and avatar; identity fields stay fixed.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, fullName, avatar string) (*models.User, error) {
	update := bson.M{"updatedAt": time.Now()}
	if fullName != "" {
		update["fullName"] = html.EscapeString(fullName)
	}
	if avatar != "" {
		update["avatar"] = avatar
	}

	var user models.User
	err := s.usersCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": update},
		mongoReturnAfter()).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("user")
	}
	if err != nil {
		return nil, models.NewPersistenceError("update profile", err)
	}
	return &user, nil
}
