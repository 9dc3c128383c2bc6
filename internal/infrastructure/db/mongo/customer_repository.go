package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crmapi/crm-service/internal/core/domain"
)

type CustomerRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	return &CustomerRepository{db: db, col: db.Collection(collectionCustomers)}
}

type mongoCustomer struct {
	ID               int64     `bson:"_id"`
	FirstName        string    `bson:"first_name"`
	LastName         string    `bson:"last_name"`
	Email            string    `bson:"email"`
	Region           string    `bson:"region"`
	RegistrationDate time.Time `bson:"registration_date"`
}

func (r *CustomerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	return r.find(ctx, bson.D{})
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mc mongoCustomer
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&mc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	c := mc.toDomain()
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collectionCustomers)
	if err != nil {
		return nil, err
	}

	doc := toMongoCustomer(c)
	doc.ID = id
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	out := doc.toDomain()
	return &out, nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": c.ID}, toMongoCustomer(c))
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrStaleUpdate
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepository) Filter(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error) {
	return r.find(ctx, buildFilter(f))
}

func (r *CustomerRepository) find(ctx context.Context, filter bson.D) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find customers: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoCustomer
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode customers: %w", err)
	}

	out := make([]domain.Customer, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// buildFilter translates f into a query document. Text constraints become
// case-insensitive regexes over the quoted input.
func buildFilter(f domain.CustomerFilter) bson.D {
	filter := bson.D{}
	if f.Name != "" {
		rx := containsRegex(f.Name)
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"first_name": rx},
			bson.M{"last_name": rx},
		}})
	}
	if f.Email != "" {
		filter = append(filter, bson.E{Key: "email", Value: containsRegex(f.Email)})
	}
	if f.Region != "" {
		filter = append(filter, bson.E{Key: "region", Value: containsRegex(f.Region)})
	}
	if f.RegistrationDate != nil {
		day := domain.DateOnly(*f.RegistrationDate)
		filter = append(filter, bson.E{Key: "registration_date", Value: bson.M{
			"$gte": day,
			"$lt":  day.AddDate(0, 0, 1),
		}})
	}
	return filter
}

func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func toMongoCustomer(c *domain.Customer) mongoCustomer {
	return mongoCustomer{
		ID:               c.ID,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Email:            c.Email,
		Region:           c.Region,
		RegistrationDate: domain.DateOnly(c.RegistrationDate),
	}
}

func (mc mongoCustomer) toDomain() domain.Customer {
	return domain.Customer{
		ID:               mc.ID,
		FirstName:        mc.FirstName,
		LastName:         mc.LastName,
		Email:            mc.Email,
		Region:           mc.Region,
		RegistrationDate: domain.DateOnly(mc.RegistrationDate.UTC()),
	}
}
