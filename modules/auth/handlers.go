package auth

import (
	"net/http"
	"time"

	"github.com/stackblog/authkit/svc/auth"
)

// identityResponse is the public projection of an identity. The password hash
// never leaves the service boundary.
type identityResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	User         identityResponse `json:"user"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
}

func toIdentityResponse(u *auth.User) identityResponse {
	return identityResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		Name:      u.Name,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		Role:      string(u.Role),
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

func toSessionResponse(s *auth.Session) sessionResponse {
	return sessionResponse{
		User:         toIdentityResponse(s.User),
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
}

func (m *Module) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		m.respondBadRequest(w)
		return
	}

	session, err := m.svc.Register(r.Context(), auth.RegisterParams{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (m *Module) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		m.respondBadRequest(w)
		return
	}

	session, err := m.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, toSessionResponse(session))
}

func (m *Module) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		m.respondBadRequest(w)
		return
	}

	accessToken, err := m.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, map[string]string{"access_token": accessToken})
}

// handleLogout revokes the refresh token named in the X-Refresh-Token header.
// The bearer access token authenticates the call; an empty or unknown refresh
// token still yields 200.
func (m *Module) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := m.svc.Logout(r.Context(), r.Header.Get(refreshTokenHeader)); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondOK(w)
}

func (m *Module) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		m.respondErrorCode(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
		return
	}

	if err := m.svc.LogoutAll(r.Context(), user.ID); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondOK(w)
}

func (m *Module) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		m.respondErrorCode(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		m.respondBadRequest(w)
		return
	}

	if err := m.svc.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondOK(w)
}

func (m *Module) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		m.respondBadRequest(w)
		return
	}

	if err := m.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondOK(w)
}

func (m *Module) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		m.respondBadRequest(w)
		return
	}

	if err := m.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondOK(w)
}

func (m *Module) handleSendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		m.respondErrorCode(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
		return
	}

	if err := m.svc.SendVerificationEmail(r.Context(), user.ID); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondOK(w)
}

func (m *Module) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		m.respondBadRequest(w)
		return
	}

	if err := m.svc.VerifyEmail(r.Context(), req.Token); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondOK(w)
}

func (m *Module) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		m.respondErrorCode(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
		return
	}

	if err := m.svc.DeleteAccount(r.Context(), user.ID); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondOK(w)
}

func (m *Module) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		m.respondErrorCode(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
		return
	}
	m.respondJSON(w, http.StatusOK, toIdentityResponse(user))
}
