package httpserver

import (
	"net/http"
	"time"

	"github.com/and161185/filevault/internal/errs"
	"github.com/and161185/filevault/internal/model"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type profileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type sessionResponse struct {
	User         model.PublicUser `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// bind decodes a JSON body; a malformed body is a validation failure.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.writeError(c, errs.Validation("invalid request body"))
		return false
	}
	return true
}

func (s *Server) setAccessCookie(c *gin.Context, t model.Tokens) {
	maxAge := int(time.Until(t.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, t.AccessToken, maxAge, "/", "", s.opts.CookieSecure, true)
}

func (s *Server) clearAccessCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, "", -1, "/", "", s.opts.CookieSecure, true)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !s.bind(c, &req) {
		return
	}
	sess, err := s.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setAccessCookie(c, sess.Tokens)
	respond(c, http.StatusCreated, sessionResponse{
		User:         sess.User,
		AccessToken:  sess.Tokens.AccessToken,
		RefreshToken: sess.Tokens.RefreshToken,
	}, "user created successfully")
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bind(c, &req) {
		return
	}
	sess, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setAccessCookie(c, sess.Tokens)
	respond(c, http.StatusOK, sessionResponse{
		User:         sess.User,
		AccessToken:  sess.Tokens.AccessToken,
		RefreshToken: sess.Tokens.RefreshToken,
	}, "user logged in successfully")
}

func (s *Server) handleLogout(c *gin.Context) {
	var req refreshRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		s.writeError(c, err)
		return
	}
	s.clearAccessCookie(c)
	respond(c, http.StatusOK, nil, "user logged out successfully")
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if !s.bind(c, &req) {
		return
	}
	t, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setAccessCookie(c, t)
	respond(c, http.StatusOK, tokensResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}, "access token refreshed successfully")
}

// currentUser is set by the access guard on every protected route.
func currentUser(c *gin.Context) model.PublicUser {
	u, _ := UserFromCtx(c.Request.Context())
	return u
}

func (s *Server) handleGetProfile(c *gin.Context) {
	u, err := s.auth.GetProfile(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, u, "user profile fetched successfully")
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req profileRequest
	if !s.bind(c, &req) {
		return
	}
	u, err := s.auth.UpdateProfile(c.Request.Context(), currentUser(c).ID, req.Username, req.Email)
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, u, "user profile updated successfully")
}

func (s *Server) handleUpdatePassword(c *gin.Context) {
	var req passwordRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.auth.UpdatePassword(c.Request.Context(), currentUser(c).ID, req.OldPassword, req.NewPassword); err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "password updated successfully")
}
