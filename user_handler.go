package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"salesboard/auth"
	"salesboard/config"
	"salesboard/model"
)

func ListUsersHandler(users *auth.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context())
		if err != nil {
			config.GetLogger().WithError(err).Error("Error listing users")
			writeJSONError(w, "La liste des utilisateurs est indisponible.", http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	}
}

// CreateUserHandler accepts JSON from the API or the dashboard's form post,
// which is redirected back to the dashboard.
func CreateUserHandler(users *auth.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		fromForm := !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")

		var input struct {
			Username    string `json:"username"`
			Password    string `json:"password"`
			DisplayName string `json:"displayName"`
			Role        string `json:"role"`
		}
		if fromForm {
			if err := r.ParseForm(); err != nil {
				writeJSONError(w, "Requête invalide.", http.StatusBadRequest)
				return
			}
			input.Username = r.PostFormValue("username")
			input.Password = r.PostFormValue("password")
			input.DisplayName = r.PostFormValue("displayName")
			input.Role = string(model.RoleUser)
			if r.PostFormValue("admin") != "" {
				input.Role = string(model.RoleAdmin)
			}
		} else if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeJSONError(w, "Requête invalide.", http.StatusBadRequest)
			return
		}

		err := users.Create(r.Context(), auth.CredentialInput{
			Username:    input.Username,
			Password:    input.Password,
			DisplayName: input.DisplayName,
			Role:        model.Role(input.Role),
		})
		var ve *model.ValidationError
		switch {
		case errors.As(err, &ve):
			writeJSONError(w, "Champ invalide: "+ve.Field, http.StatusBadRequest)
			return
		case errors.Is(err, auth.ErrUserExists):
			writeJSONError(w, "Ce nom d'utilisateur existe déjà.", http.StatusConflict)
			return
		case err != nil:
			config.GetLogger().WithError(err).Error("Error creating user")
			writeJSONError(w, "La création de l'utilisateur a échoué.", http.StatusInternalServerError)
			return
		}

		if fromForm {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message": "Utilisateur créé."})
	}
}

// DeleteUserHandler removes /api/users/delete/<username>. Admins cannot
// delete themselves.
func DeleteUserHandler(users *auth.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			writeJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		username := strings.TrimPrefix(r.URL.Path, "/api/users/delete/")
		if username == "" {
			writeJSONError(w, "Aucun utilisateur indiqué.", http.StatusBadRequest)
			return
		}
		if sess := auth.SessionFromContext(r.Context()); sess != nil && sess.Username == username {
			writeJSONError(w, "Vous ne pouvez pas supprimer votre propre compte.", http.StatusBadRequest)
			return
		}

		err := users.Delete(r.Context(), username)
		if errors.Is(err, auth.ErrUserNotFound) {
			writeJSONError(w, "Utilisateur introuvable.", http.StatusNotFound)
			return
		}
		if err != nil {
			config.GetLogger().WithError(err).Error("Error deleting user")
			writeJSONError(w, "La suppression a échoué.", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"message": "Utilisateur supprimé."})
	}
}
