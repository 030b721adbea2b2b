package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"salesboard/config"
)

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		config.GetLogger().WithError(err).Warn("failed to encode JSON response")
	}
}

// GetConfigHandler returns the current configuration. The session secret is
// never serialized.
func GetConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, config.GetConfig())
	}
}

func SaveConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			writeJSONError(w, "Requête invalide.", http.StatusBadRequest)
			return
		}
		if newCfg.CurrencyRate < 0 {
			writeJSONError(w, "Le taux de change doit être positif.", http.StatusBadRequest)
			return
		}
		if newCfg.TopN < 0 {
			writeJSONError(w, "Le nombre de produits du classement doit être positif.", http.StatusBadRequest)
			return
		}
		if err := validateFolderPath(newCfg.OutputDir); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := config.SaveConfig(newCfg); err != nil {
			config.GetLogger().WithError(err).Error("Error saving config")
			writeJSONError(w, "L'enregistrement de la configuration a échoué.", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"message": "Configuration enregistrée."})
	}
}

// validateFolderPath accepts an empty path or an existing directory.
func validateFolderPath(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New("Dossier introuvable: " + path)
		}
		config.GetLogger().WithError(err).Warn("Error checking folder path")
		return errors.New("Impossible de vérifier le dossier.")
	}
	if !info.IsDir() {
		return errors.New("Le chemin n'est pas un dossier: " + path)
	}
	return nil
}
