package controller

import (
	"net/http"

	"github.com/flickroom/client/internal/service/account"
	"github.com/flickroom/client/pkg/rest"
	"github.com/go-chi/chi/v5"
)

type credentialsInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c *controller) login(w http.ResponseWriter, r *http.Request) {
	var input credentialsInput
	if !c.readInput(w, r, &input) {
		return
	}

	if err := c.accountService.Login(r.Context(), &account.CredentialsParams{
		Email:    input.Email,
		Password: input.Password,
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *controller) register(w http.ResponseWriter, r *http.Request) {
	var input credentialsInput
	if !c.readInput(w, r, &input) {
		return
	}

	if err := c.accountService.Register(r.Context(), &account.CredentialsParams{
		Email:    input.Email,
		Password: input.Password,
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *controller) logout(w http.ResponseWriter, r *http.Request) {
	if err := c.accountService.Logout(r.Context()); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type changePasswordInput struct {
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func (c *controller) changePassword(w http.ResponseWriter, r *http.Request) {
	var input changePasswordInput
	if !c.readInput(w, r, &input) {
		return
	}

	if err := c.accountService.ChangePassword(r.Context(), input.NewPassword); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *controller) userDetails(w http.ResponseWriter, r *http.Request) {
	user, err := c.accountService.UserDetails(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": user})
}

func (c *controller) preferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := c.accountService.Preferences(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": prefs})
}

type addPreferenceInput struct {
	Tconst string  `json:"tconst" validate:"required,alphanum,max=32"`
	Rating float64 `json:"rating" validate:"gte=0,lte=10"`
}

func (c *controller) addPreference(w http.ResponseWriter, r *http.Request) {
	var input addPreferenceInput
	if !c.readInput(w, r, &input) {
		return
	}

	if err := c.accountService.AddPreference(r.Context(), &account.AddPreferenceParams{
		Tconst: input.Tconst,
		Rating: input.Rating,
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *controller) removePreference(w http.ResponseWriter, r *http.Request) {
	if err := c.accountService.RemovePreference(r.Context(), chi.URLParam(r, "tconst")); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
