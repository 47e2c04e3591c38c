// Package auth defines routes for registering, logging in and logging out
package auth

import (
	"net/http"
	"strings"

	"github.com/dense-analysis/tradewarp/internal/account"
	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/dense-analysis/tradewarp/internal/route/util"
	"github.com/dense-analysis/tradewarp/internal/session"
	"github.com/dense-analysis/tradewarp/internal/template"
	"github.com/dense-analysis/tradewarp/pkg/lax"
)

type AuthPageData struct {
	User    model.User
	Message string
}

func renderForm(writer http.ResponseWriter, page string, status int, message string) {
	tmpl := template.Login

	if page == "register" {
		tmpl = template.Register
	}

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(status)
	template.Render(tmpl, writer, AuthPageData{Message: message})
}

func HandleViewLoginForm(_ *util.Services, writer http.ResponseWriter, _ *http.Request) {
	renderForm(writer, "login", http.StatusOK, "")
}

func HandleLogin(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	request.ParseForm()
	username := request.Form.Get("username")
	password := request.Form.Get("password")

	if strings.TrimSpace(username) == "" {
		renderForm(writer, "login", http.StatusBadRequest, "must provide username")

		return
	}

	if password == "" {
		renderForm(writer, "login", http.StatusBadRequest, "must provide password")

		return
	}

	var user model.User

	if err := account.Authenticate(services.Conn, username, password, &user); err != nil {
		if err == account.ErrInvalidLogin {
			renderForm(writer, "login", http.StatusBadRequest, err.Error())
		} else {
			util.RespondInternalServerError(writer, err)
		}

		return
	}

	if err := session.SaveUserInSession(writer, request, &user); err != nil {
		util.RespondInternalServerError(writer, err)

		return
	}

	http.Redirect(writer, request, "/", http.StatusFound)
}

func HandleLogout(_ *util.Services, writer http.ResponseWriter, request *http.Request) {
	session.ClearSession(writer, request)
	http.Redirect(writer, request, "/login", http.StatusFound)
}

func HandleViewRegisterForm(_ *util.Services, writer http.ResponseWriter, _ *http.Request) {
	renderForm(writer, "register", http.StatusOK, "")
}

// HandleRegister creates a user with the initial cash balance and logs them in.
func HandleRegister(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	request.ParseForm()
	username := strings.TrimSpace(request.Form.Get("username"))
	password := request.Form.Get("password")
	confirmation := request.Form.Get("confirmation")

	var message string

	switch {
	case username == "":
		message = "must provide username"
	case password == "":
		message = "must provide password"
	case confirmation == "":
		message = "must provide a password confirmation"
	case password != confirmation:
		message = "your password and confirmation don't match"
	}

	if message != "" {
		renderForm(writer, "register", http.StatusBadRequest, message)

		return
	}

	var user model.User

	if err := account.Create(services.Conn, username, password, services.InitialCash, &user); err != nil {
		if err == account.ErrUsernameTaken {
			renderForm(writer, "register", http.StatusBadRequest, err.Error())
		} else {
			util.RespondInternalServerError(writer, err)
		}

		return
	}

	if err := session.SaveUserInSession(writer, request, &user); err != nil {
		util.RespondInternalServerError(writer, err)

		return
	}

	http.Redirect(writer, request, "/", http.StatusFound)
}

// CheckHandler returns JSON `true` if a username is available for registration.
func CheckHandler(services *util.Services) http.HandlerFunc {
	return lax.Wrap(lax.View{
		Get: func(request *lax.Request) interface{} {
			username := strings.TrimSpace(request.Query("username"))

			if username == "" {
				return lax.MakeErrorListResponse(
					lax.Issue("username", "missing username"),
				)
			}

			available, err := account.UsernameAvailable(services.Conn, username)

			if err != nil {
				return err
			}

			return lax.MakeResponse(http.StatusOK, available)
		},
	})
}
