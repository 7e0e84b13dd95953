package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"vilatur/internal/model"
)

const userColumns = `id, username, email, name, password_hashed, image_id, created_at, updated_at`

// Messages shown when a unique user field is already taken.
const (
	MsgEmailTaken    = "Já existe usuário com esse e-mail"
	MsgUsernameTaken = "Já existe usuário com esse nome de usuário"
)

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, email, name, password_hashed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		u.Username,
		u.Email,
		u.Name,
		u.PasswordHashed,
	)

	err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if conflict := userConflict(err); conflict != nil {
			return conflict
		}
		return storageErr("insert user", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, "get user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByUsername retrieves a user by their username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "get user by username", `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// GetByEmail matches e-mail case-insensitively.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "get user by email", `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *userRepository) getOne(ctx context.Context, op, query string, arg interface{}) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, storageErr(op, err)
	}

	return &u, nil
}

// Update writes the profile fields and password hash of u.
func (r *userRepository) Update(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, name = $3, password_hashed = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`

	err := r.db.GetContext(ctx, &u.UpdatedAt, query, u.Username, u.Email, u.Name, u.PasswordHashed, u.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrUserNotFound
		}
		if conflict := userConflict(err); conflict != nil {
			return conflict
		}
		return storageErr("update user", err)
	}

	return nil
}

// SetImage points the user at imageID within tx and returns the image it replaced.
func (r *userRepository) SetImage(ctx context.Context, tx *sqlx.Tx, userID int64, imageID string) (*string, error) {
	query := `
		UPDATE users u
		SET image_id = $1, updated_at = NOW()
		FROM (SELECT id, image_id FROM users WHERE id = $2 FOR UPDATE) prev
		WHERE u.id = prev.id
		RETURNING prev.image_id
	`

	var previous *string
	err := tx.GetContext(ctx, &previous, query, imageID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, storageErr("set user image", err)
	}

	return previous, nil
}

// userConflict maps a unique violation on users to a per-field ConflictError.
func userConflict(err error) error {
	constraint := uniqueViolation(err)
	switch {
	case constraint == "":
		return nil
	case strings.Contains(constraint, "email"):
		return &model.ConflictError{Fields: map[string]string{"email": MsgEmailTaken}}
	case strings.Contains(constraint, "username"):
		return &model.ConflictError{Fields: map[string]string{"username": MsgUsernameTaken}}
	default:
		return &model.ConflictError{Fields: map[string]string{"user": constraint}}
	}
}
