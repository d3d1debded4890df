package postgresql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/quebracell/backend/internal/db"
)

type UserRepo struct {
	db db.DB
}

type User struct {
	ID       string `db:"id"`
	Email    string `db:"email"`
	Password string `db:"password"`
}

func NewUserRepo(db db.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) CreateUser(ctx context.Context, email, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		"INSERT INTO users (id, email, password) VALUES ($1, $2, $3)",
		uuid.NewString(), email, string(hashedPassword))
	return err
}

// Authenticate checks the credentials and returns the account id on
// success.
func (r *UserRepo) Authenticate(ctx context.Context, email, password string) (string, error) {
	var id, hashedPassword string
	err := r.db.ExecQueryRow(ctx,
		"SELECT id, password FROM users WHERE email = $1", email).Scan(&id, &hashedPassword)
	if err != nil {
		return "", errors.New("user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}
	return id, nil
}
