package api

import (
	"net/http"

	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"

	"github.com/made-media/billdesk/internal/middleware"
)

func (s *Server) handleLoginPage(c *gin.Context) {
	s.renderer.HTML(c, http.StatusOK, "login.pongo2", pongo2.Context{
		"Title": "Sign in",
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := s.users.Authenticate(username, password)
	if err != nil {
		s.renderer.HTML(c, http.StatusUnauthorized, "login.pongo2", pongo2.Context{
			"Title": "Sign in",
			"Error": "Username or password is incorrect.",
		})
		return
	}

	token, err := s.jwtManager.GenerateToken(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.SetCookie(middleware.SessionCookie, token, 0, "/", "", s.secureCookie, true)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) handleLogout(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", s.secureCookie, true)
	c.Redirect(http.StatusFound, "/login")
}
