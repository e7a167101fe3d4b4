package controllers

import (
	"net/http"

	"go-cartshop/logger"
	"go-cartshop/models"
	"go-cartshop/responses"
	"go-cartshop/services"
	"go-cartshop/validators"
)

// UserController handles user-related requests
type UserController struct {
	Service *services.UserService
	Log     *logger.Logger
}

// NewUserController creates a new UserController
func NewUserController(service *services.UserService, log *logger.Logger) *UserController {
	return &UserController{Service: service, Log: log}
}

type registerResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles user registration
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), uc.Log, w, err)
		return
	}

	user, err := uc.Service.Register(r.Context(), input)
	if err != nil {
		responses.WriteError(r.Context(), uc.Log, w, err)
		return
	}
	responses.WriteJSON(w, http.StatusCreated, registerResponse{
		Message: "You have successfully registered",
		User:    user,
	})
}

// Login handles user authentication
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), uc.Log, w, err)
		return
	}

	token, user, err := uc.Service.Login(r.Context(), input)
	if err != nil {
		responses.WriteError(r.Context(), uc.Log, w, err)
		return
	}
	responses.WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// GetProfile retrieves the authenticated user's profile
func (uc *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, uc.Log)
	if !ok {
		return
	}

	user, err := uc.Service.Profile(r.Context(), who)
	if err != nil {
		responses.WriteError(r.Context(), uc.Log, w, err)
		return
	}
	responses.WriteJSON(w, http.StatusOK, user)
}
