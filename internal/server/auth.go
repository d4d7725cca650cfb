package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	signupdomain "github.com/smallbiznis/invoicer/internal/signup/domain"
)

func (s *Server) Signup(c *gin.Context) {
	var req signupdomain.Request
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.signupsvc.Signup(c.Request.Context(), signupdomain.Request{
		CompanyName: strings.TrimSpace(req.CompanyName),
		Email:       strings.TrimSpace(req.Email),
		Password:    req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) Login(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type meResponse struct {
	User      *authdomain.User `json:"user"`
	CompanyID string           `json:"company_id,omitempty"`
}

func (s *Server) Me(c *gin.Context) {
	user, err := s.authsvc.CurrentUser(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := meResponse{User: user}
	if companyID, ok := companycontext.CompanyIDFromContext(c.Request.Context()); ok {
		resp.CompanyID = companyID.String()
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
