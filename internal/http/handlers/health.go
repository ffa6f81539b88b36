package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
	Storage  string `json:"storage,omitempty"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if a.Config != nil {
		resp.Provider = a.Config.GenerationProvider
		resp.Storage = a.Config.StorageDriver
	}
	a.json(w, http.StatusOK, resp)
}
