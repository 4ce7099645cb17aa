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

type AppointmentStore struct {
	coll *mongo.Collection
}

func NewAppointmentStore(db *mongo.Database) *AppointmentStore {
	return &AppointmentStore{coll: db.Collection(appointmentsCollection)}
}

func (s *AppointmentStore) Create(ctx context.Context, a *models.Appointment) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.SlotHeld = models.HoldsSlot(a.Status)
	if _, err := s.coll.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlotTaken
		}
		return err
	}
	return nil
}

func (s *AppointmentStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *AppointmentStore) FindHeld(ctx context.Context, key SlotKey) (*models.Appointment, error) {
	filter := bson.M{
		"department":       key.Department,
		"doctorId":         key.DoctorID,
		"appointment_date": key.Date,
		"select_time":      key.Time,
		"status":           bson.M{"$ne": models.StatusRejected},
	}
	var a models.Appointment
	if err := s.coll.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *AppointmentStore) HeldTimes(ctx context.Context, department string, doctorID primitive.ObjectID, date string) ([]string, error) {
	filter := bson.M{
		"department":       department,
		"doctorId":         doctorID,
		"appointment_date": date,
		"status":           bson.M{"$ne": models.StatusRejected},
	}
	opts := options.Find().
		SetProjection(bson.M{"select_time": 1}).
		SetSort(bson.D{{Key: "select_time", Value: 1}})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		SelectTime string `bson:"select_time"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	times := make([]string, 0, len(rows))
	for _, r := range rows {
		times = append(times, r.SelectTime)
	}
	return times, nil
}

func (s *AppointmentStore) ListByEmail(ctx context.Context, email string) ([]models.Appointment, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "appointment_date", Value: 1},
		{Key: "select_time", Value: 1},
	})
	cursor, err := s.coll.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (s *AppointmentStore) UpdateIfStatus(ctx context.Context, id primitive.ObjectID, expectedStatus string, patch AppointmentPatch) (*models.Appointment, error) {
	filter := bson.M{"_id": id, "status": expectedStatus}
	update := bson.M{"$set": appointmentSet(patch)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a models.Appointment
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&a)
	switch {
	case err == nil:
		return &a, nil
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrSlotTaken
	case errors.Is(err, mongo.ErrNoDocuments):
		n, cerr := s.coll.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, cerr
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrStaleWrite
	default:
		return nil, err
	}
}

func (s *AppointmentStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AppointmentStore) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{})
}

func appointmentSet(p AppointmentPatch) bson.M {
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
	if p.Address != nil {
		set["address"] = *p.Address
	}
	if p.HasVisited != nil {
		set["hasVisited"] = *p.HasVisited
	}
	if p.Status != nil {
		set["status"] = *p.Status
		set["slotHeld"] = models.HoldsSlot(*p.Status)
	}
	return set
}
