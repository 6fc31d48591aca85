package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/Mindburn-Labs/retouch/pkg/auth"
	"github.com/Mindburn-Labs/retouch/pkg/blob"
	"github.com/Mindburn-Labs/retouch/pkg/editor"
)

const maxBodyBytes = 1 << 20 // 1MB

// Server exposes the edit workflow over HTTP.
type Server struct {
	editor *editor.Service
	media  blob.Store
	signer *blob.LinkSigner
	logger *slog.Logger
}

// NewServer builds a Server. signer may be nil when the blob backend issues
// its own signed URLs; the /media/ endpoint is then not served.
func NewServer(editorSvc *editor.Service, media blob.Store, signer *blob.LinkSigner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		editor: editorSvc,
		media:  media,
		signer: signer,
		logger: logger,
	}
}

// Routes registers all endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("POST /api/coins", s.handleTopUp)
	mux.HandleFunc("GET /api/coins", s.handleBalance)
	mux.HandleFunc("POST /api/edits", s.handleEdit)
	if s.signer != nil {
		mux.HandleFunc("GET /media/{path...}", s.handleMedia)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SignupRequest is posted by the identity provider's registration hook.
type SignupRequest struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.UID == "" {
		WriteBadRequest(w, "Missing required field: uid")
		return
	}

	if err := s.editor.Bootstrap(r.Context(), req.UID); err != nil {
		WriteWorkflowError(w, r, err)
		return
	}

	s.logger.Info("account bootstrapped", "account_id", req.UID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TopUpRequest credits coins to the authenticated account.
type TopUpRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleTopUp(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := s.editor.AddBalance(r.Context(), accountID, req.Amount); err != nil {
		WriteWorkflowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "added": req.Amount})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.editor.Balance(r.Context(), auth.AccountID(r.Context()))
	if err != nil {
		WriteWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// EditRequest asks for a transformed copy of an already-uploaded image.
type EditRequest struct {
	FilePath string `json:"filePath"`
	Prompt   string `json:"prompt"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	result, err := s.editor.RequestEdit(r.Context(), accountID, req.FilePath, req.Prompt)
	if err != nil {
		WriteWorkflowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"generatedUrl": result.SignedLink})
}

// handleMedia serves file-store objects behind HMAC-signed links issued by
// LinkSigner. Signature and expiry are verified before any byte is read.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	objectPath := r.PathValue("path")
	exp := r.URL.Query().Get("exp")
	sig := r.URL.Query().Get("sig")

	if err := s.signer.Verify(objectPath, exp, sig); err != nil {
		if errors.Is(err, blob.ErrLinkExpired) {
			WriteError(w, http.StatusForbidden, "Forbidden", "Link has expired")
			return
		}
		WriteError(w, http.StatusForbidden, "Forbidden", "Invalid link signature")
		return
	}

	data, err := s.media.Download(r.Context(), objectPath)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			WriteNotFound(w, "Object not found")
			return
		}
		WriteInternal(w, err)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(objectPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
