package controllers

import (
	"net/http"
	"time"

	accountservice "vm-rental/internal/services/account_service"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

type AuthController struct {
	accounts *accountservice.AccountService
	secret   string
}

func NewAuthController(accounts *accountservice.AccountService, secret string) *AuthController {
	return &AuthController{accounts: accounts, secret: secret}
}

func (a *AuthController) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	auth.POST("/login", a.Login)
}

// RegisterProtectedRoutes holds the account-creation route, which only an
// already-authenticated operator may call.
func (a *AuthController) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	auth.POST("/accounts", a.CreateAccount)
}

type LoginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *AuthController) Login(c *gin.Context) {
	var params LoginParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	account, err := a.accounts.Authenticate(c.Request.Context(), params.Username, params.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": account.ID,
		"exp":        time.Now().Add(24 * time.Hour).Unix(),
	}).SignedString([]byte(a.secret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.SetCookie("authorization", "Bearer "+tokenString, 86400, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"token": tokenString})
}

type CreateAccountParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (a *AuthController) CreateAccount(c *gin.Context) {
	var params CreateAccountParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	account, err := a.accounts.Create(c.Request.Context(), accountservice.CreateAccountParams{
		Username: params.Username,
		Password: params.Password,
		Email:    params.Email,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account})
}
