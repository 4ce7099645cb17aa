package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/hospital-api/internal/models"
)

type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(usersCollection)}
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &DuplicateError{Field: "email"}
		}
		return err
	}
	return nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) FindDoctor(ctx context.Context, firstName, lastName, department string) (*models.User, error) {
	return s.findOne(ctx, bson.M{
		"firstName":        firstName,
		"lastName":         lastName,
		"role":             models.RoleDoctor,
		"doctorDepartment": department,
	})
}

func (s *UserStore) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastName", Value: 1}, {Key: "firstName", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{"role": role}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserStore) Update(ctx context.Context, id primitive.ObjectID, patch UserPatch) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": userSet(patch)}, opts).Decode(&u)
	switch {
	case err == nil:
		return &u, nil
	case mongo.IsDuplicateKeyError(err):
		return nil, &DuplicateError{Field: "email"}
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (s *UserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) CountByRole(ctx context.Context, role string) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"role": role})
}

func userSet(p UserPatch) bson.M {
	set := bson.M{}
	if p.FirstName != nil {
		set["firstName"] = *p.FirstName
	}
	if p.LastName != nil {
		set["lastName"] = *p.LastName
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.NIC != nil {
		set["nic"] = *p.NIC
	}
	if p.DOB != nil {
		set["dob"] = *p.DOB
	}
	if p.Gender != nil {
		set["gender"] = *p.Gender
	}
	if p.DoctorDepartment != nil {
		set["doctorDepartment"] = *p.DoctorDepartment
	}
	return set
}

type MessageStore struct {
	coll *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{coll: db.Collection(messagesCollection)}
}

func (s *MessageStore) Create(ctx context.Context, m *models.Message) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	_, err := s.coll.InsertOne(ctx, m)
	return err
}
