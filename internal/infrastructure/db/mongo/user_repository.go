package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinic/backoffice/internal/core/domain"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// mongoUser is the stored user document. Roles live inline on the document.
type mongoUser struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	FullName              string             `bson:"full_name"`
	Email                 string             `bson:"email"`
	PasswordHash          string             `bson:"password_hash,omitempty"`
	Address               string             `bson:"address"`
	Phone                 string             `bson:"phone"`
	Gender                string             `bson:"gender"`
	DNI                   string             `bson:"dni"`
	Tuition               string             `bson:"tuition,omitempty"`
	SocialWork            string             `bson:"social_work,omitempty"`
	MembershipNumber      string             `bson:"membership_number,omitempty"`
	Plan                  string             `bson:"plan,omitempty"`
	ImageURL              string             `bson:"image_url,omitempty"`
	AccountNonExpired     bool               `bson:"account_non_expired"`
	AccountNonLocked      bool               `bson:"account_non_locked"`
	CredentialsNonExpired bool               `bson:"credentials_non_expired"`
	Enabled               bool               `bson:"enabled"`
	Roles                 []string           `bson:"roles"`
	CreatedAt             time.Time          `bson:"created_at"`
	UpdatedAt             time.Time          `bson:"updated_at"`
}

func toMongoUser(u *domain.Identity) mongoUser {
	return mongoUser{
		FullName:              u.FullName,
		Email:                 u.Email,
		PasswordHash:          u.PasswordHash,
		Address:               u.Address,
		Phone:                 u.Phone,
		Gender:                u.Gender,
		DNI:                   u.DNI,
		Tuition:               u.Tuition,
		SocialWork:            u.SocialWork,
		MembershipNumber:      u.MembershipNumber,
		Plan:                  u.Plan,
		ImageURL:              u.ImageURL,
		AccountNonExpired:     u.AccountNonExpired,
		AccountNonLocked:      u.AccountNonLocked,
		CredentialsNonExpired: u.CredentialsNonExpired,
		Enabled:               u.Enabled,
		Roles:                 u.RoleStrings(),
		CreatedAt:             u.CreatedAt.UTC(),
		UpdatedAt:             u.UpdatedAt.UTC(),
	}
}

func (mu mongoUser) toDomain() *domain.Identity {
	roles := make([]domain.RoleName, 0, len(mu.Roles))
	for _, r := range mu.Roles {
		roles = append(roles, domain.RoleName(r))
	}
	return &domain.Identity{
		ID:                    mu.ID.Hex(),
		FullName:              mu.FullName,
		Email:                 mu.Email,
		PasswordHash:          mu.PasswordHash,
		Address:               mu.Address,
		Phone:                 mu.Phone,
		Gender:                mu.Gender,
		DNI:                   mu.DNI,
		Tuition:               mu.Tuition,
		SocialWork:            mu.SocialWork,
		MembershipNumber:      mu.MembershipNumber,
		Plan:                  mu.Plan,
		ImageURL:              mu.ImageURL,
		AccountNonExpired:     mu.AccountNonExpired,
		AccountNonLocked:      mu.AccountNonLocked,
		CredentialsNonExpired: mu.CredentialsNonExpired,
		Enabled:               mu.Enabled,
		Roles:                 roles,
		CreatedAt:             mu.CreatedAt,
		UpdatedAt:             mu.UpdatedAt,
	}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *UserRepository) ExistsByDNI(ctx context.Context, dni string) (bool, error) {
	return r.exists(ctx, bson.M{"dni": dni})
}

func (r *UserRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}
