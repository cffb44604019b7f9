package handlers

import (
	"net/http"

	"duochat/pkg/httputil"
)

func Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
