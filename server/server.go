package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	gamesrv "github.com/crmacca/ebookstore-game-server"
	"github.com/crmacca/ebookstore-game-server/config"
	"github.com/crmacca/ebookstore-game-server/games/arcade"
	"github.com/crmacca/ebookstore-game-server/games/table"
	"github.com/crmacca/ebookstore-game-server/gateway"
	"github.com/crmacca/ebookstore-game-server/ledger"
	"github.com/crmacca/ebookstore-game-server/session"
	"github.com/crmacca/ebookstore-game-server/storefront"
	"github.com/crmacca/ebookstore-game-server/webhook"
)

type Server struct {
	cfg     *config.Config
	ledger  ledger.Ledger
	gateway *gateway.Gateway
	auth    gateway.AuthFunc
}

func New(cfg *config.Config) *Server {
	var led ledger.Ledger
	db, err := gamesrv.GetDB()
	switch {
	case err != nil:
		log.Printf("db unavailable (%v), falling back to file ledger", err)
		led = ledger.NewFileLedger(cfg.DataDir)
	case db != nil:
		led = ledger.NewDBLedger(db)
		log.Printf("using postgres ledger")
	default:
		led = ledger.NewFileLedger(cfg.DataDir)
	}

	entries := ledger.NewEntryLog(cfg.DataDir)
	store := session.NewStore(cfg.DataDir)
	locks := session.NewLocks()

	tbl := table.NewEngine(led, store, locks, cfg.MaxTableWager)
	tbl.Entries = entries
	arc := arcade.NewEngine(led, store, locks, cfg.ArcadeEntryFee, cfg.ArcadeDivisor, cfg.ArcadeMaxPoints)
	arc.Entries = entries

	sf := storefront.NewClient(cfg.StorefrontURL)
	var notifier *webhook.Client
	if cfg.WebhookEndpoint != "" {
		notifier = webhook.NewClient(cfg.WebhookEndpoint, cfg.WebhookSecret)
	}

	auth := gateway.AuthFunc(sf.VerifySession)
	return &Server{
		cfg:     cfg,
		ledger:  led,
		gateway: gateway.New(auth, tbl, arc, notifier),
		auth:    auth,
	}
}

func (s *Server) Run() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /api/balance", s.getBalance)
	mux.HandleFunc("GET /ws", s.gateway.HandleWS)

	addr := ":" + strconv.Itoa(s.cfg.Port)
	log.Printf("game server listening on %s (storefront: %s)", addr, s.cfg.StorefrontURL)
	return http.ListenAndServe(addr, cors(requestLogger(mux)))
}

func cors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// requestLogger logs method and path for each request (no body or tokens).
func requestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("game %s %s", r.Method, r.URL.Path)
		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "game-server"})
}

// getBalance serves the storefront balance display: token-authed, always a
// fresh ledger read.
func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	token := gateway.TokenFromRequest(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "token required", "TOKEN_REQUIRED")
		return
	}
	userID, err := s.auth(r.Context(), token)
	if err != nil || userID == "" {
		writeError(w, http.StatusUnauthorized, "invalid session token", "TOKEN_INVALID")
		return
	}
	bal, err := s.ledger.Balance(r.Context(), userID)
	if err != nil {
		log.Printf("balance read for user %s failed: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to read balance", "INTERNAL")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": bal})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
