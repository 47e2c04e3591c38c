// Package account stores users, their password hashes and their cash.
package account

import (
	"errors"
	"strings"

	"github.com/dense-analysis/tradewarp/internal/database"
	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for new password hashes.
var PasswordCost = 12

var ErrUsernameTaken = errors.New("this user already exists")
var ErrInvalidLogin = errors.New("invalid username and/or password")

func scanUser(row database.Row, user *model.User) error {
	return row.Scan(&user.ID, &user.Username, &user.Cash)
}

// Create inserts a new user with a bcrypt hash of the password.
//
// ErrUsernameTaken is returned when the username already exists.
func Create(conn database.Queryable, username string, password string, cash decimal.Decimal, user *model.User) error {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)

	if err != nil {
		return err
	}

	row := conn.QueryRow(
		`insert into trade_user (username, password, cash)
		values ($1, $2, $3)
		returning id, username, cash`,
		strings.TrimSpace(username),
		string(passwordHash),
		cash,
	)

	if err := scanUser(row, user); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}

		return err
	}

	return nil
}

// Authenticate loads a user by username if the password matches.
func Authenticate(conn database.Queryable, username string, password string, user *model.User) error {
	row := conn.QueryRow(
		"select id, username, cash, password from trade_user where username = $1",
		strings.TrimSpace(username),
	)

	var passwordHash string

	if err := row.Scan(&user.ID, &user.Username, &user.Cash, &passwordHash); err != nil {
		if err == database.ErrNoRows {
			return ErrInvalidLogin
		}

		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return ErrInvalidLogin
	}

	return nil
}

// LoadByID loads a user. database.ErrNoRows is returned for unknown IDs.
func LoadByID(conn database.Queryable, userID int64, user *model.User) error {
	row := conn.QueryRow("select id, username, cash from trade_user where id = $1", userID)

	return scanUser(row, user)
}

// LoadByUsername loads a user. database.ErrNoRows is returned for unknown usernames.
func LoadByUsername(conn database.Queryable, username string, user *model.User) error {
	row := conn.QueryRow(
		"select id, username, cash from trade_user where username = $1",
		strings.TrimSpace(username),
	)

	return scanUser(row, user)
}

// UsernameAvailable returns true if no user has the username yet.
func UsernameAvailable(conn database.Queryable, username string) (bool, error) {
	row := conn.QueryRow(
		"select count(*) from trade_user where username = $1",
		strings.TrimSpace(username),
	)

	var count int64

	if err := row.Scan(&count); err != nil {
		return false, err
	}

	return count == 0, nil
}

// LockCash reads the cash for a user and locks the user row until the transaction ends.
func LockCash(conn database.Queryable, userID int64) (decimal.Decimal, error) {
	row := conn.QueryRow(
		"select cash from trade_user where id = $1"+conn.ForUpdate(),
		userID,
	)

	var cash decimal.Decimal
	err := row.Scan(&cash)

	return cash, err
}

// SetCash stores a new cash balance for a user.
func SetCash(conn database.Queryable, userID int64, cash decimal.Decimal) error {
	return conn.Exec("update trade_user set cash = $1 where id = $2", cash, userID)
}
