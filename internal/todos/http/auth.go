package http

import (
	"net/http"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/service"
	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/aussiebroadwan/tabtodo/pkg/todosdk"
)

type AuthHandler struct {
	AuthService *service.AuthService
	Security    httpx.SecurityConfig
}

// HandleRegister creates an account and signs it in.
//
//	@Summary		Register
//	@Description	Creates a USER account and returns a session token. The token is also set as the HttpOnly `jwt` cookie.
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		todosdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	todosdk.TokenResponse
//	@Failure		400		{object}	todosdk.ErrorResponse	"Invalid input, see fields"
//	@Failure		409		{object}	todosdk.ErrorResponse	"Username or email already in use"
//	@Failure		429		{object}	todosdk.ErrorResponse	"Rate limit exceeded"
//	@Router			/api/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req todosdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, user, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusCreated, token, user)
}

// HandleAuthenticate signs in with a username or email and a password.
//
//	@Summary		Authenticate
//	@Description	Exchanges credentials for a session token. The username field also accepts the account email.
//	@Description	Unknown accounts, disabled accounts and wrong passwords all get the same 401.
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		todosdk.AuthenticateRequest	true	"Credentials"
//	@Success		200		{object}	todosdk.TokenResponse
//	@Failure		400		{object}	todosdk.ErrorResponse	"Malformed body"
//	@Failure		401		{object}	todosdk.ErrorResponse	"Invalid username or password"
//	@Failure		429		{object}	todosdk.ErrorResponse	"Rate limit exceeded"
//	@Router			/api/v1/auth/authenticate [post].
func (h *AuthHandler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req todosdk.AuthenticateRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, user, err := h.AuthService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusOK, token, user)
}

// HandleLogout clears the session cookie.
//
//	@Summary		Logout
//	@Description	Expires the `jwt` cookie. Tokens are stateless and are not revoked: a copy of the token keeps working until it expires.
//	@Tags			Authentication
//	@Success		204
//	@Router			/api/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.Security.ClearSessionCookie())
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, code int, token domain.Token, user domain.User) {
	http.SetCookie(w, h.Security.SessionCookie(token.Value, token.TTL))
	httpx.WriteJSON(w, code, todosdk.TokenResponse{
		Token:     token.Value,
		TokenType: "Bearer",
		ExpiresIn: int(token.TTL.Seconds()),
		ExpiresAt: token.ExpiresAt,
		User:      toUserResponse(user),
	})
}
