// Package session handles saving/loading users to/from sessions
package session

import (
	"fmt"
	"net/http"
	"os"

	"github.com/dense-analysis/tradewarp/internal/account"
	"github.com/dense-analysis/tradewarp/internal/database"
	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/gorilla/sessions"
)

var sessionStore *sessions.CookieStore

// InitSessionStorage starts up session storage or crashes the program with an error
func InitSessionStorage() {
	secretKey := os.Getenv("SECRET_KEY")

	if len(secretKey) == 0 {
		fmt.Fprintf(os.Stderr, "No SECRET_KEY variable set!\n")
		os.Exit(1)
	}

	InitSessionStorageWithKey([]byte(secretKey))
}

// InitSessionStorageWithKey starts up session storage with an explicit key.
func InitSessionStorageWithKey(secretKey []byte) {
	sessionStore = sessions.NewCookieStore(secretKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode
}

// LoadUserFromSession loads the logged in user, returning false when there isn't one.
func LoadUserFromSession(conn database.Queryable, request *http.Request, user *model.User) (bool, error) {
	session, sessionError := sessionStore.Get(request, "sessionid")

	if sessionError != nil {
		return false, nil
	}

	userID, ok := session.Values["userID"].(int64)

	if !ok {
		return false, nil
	}

	if err := account.LoadByID(conn, userID, user); err != nil {
		if err == database.ErrNoRows {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func SaveUserInSession(writer http.ResponseWriter, request *http.Request, user *model.User) error {
	session, _ := sessionStore.Get(request, "sessionid")
	session.Values["userID"] = user.ID

	return session.Save(request, writer)
}

func ClearSession(writer http.ResponseWriter, request *http.Request) error {
	session, _ := sessionStore.Get(request, "sessionid")

	for key := range session.Values {
		delete(session.Values, key)
	}

	return session.Save(request, writer)
}
