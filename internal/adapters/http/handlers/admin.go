package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Priyamannem/ddos-shield/internal/adapters/http/respond"
	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/services"
)

const (
	blacklistBlockDuration = 365 * 24 * time.Hour
	blacklistBlockReason   = "blacklisted"
	ipDetailLogLimit       = 100
	maxLogLimit            = 1000
	defaultHistoryLimit    = 20
	streamPingInterval     = 30 * time.Second
	streamWriteWait        = 10 * time.Second
)

type AdminDeps struct {
	Rules      *services.RuleRegistry
	Activity   *services.ActivityTracker
	Reputation *services.ReputationRegistry
	Audit      *services.AuditLog
	Stats      *services.StatsAggregator
	Logger     logrus.FieldLogger
}

// Admin expõe a API administrativa montada sob /admin.
type Admin struct {
	rules      *services.RuleRegistry
	activity   *services.ActivityTracker
	reputation *services.ReputationRegistry
	audit      *services.AuditLog
	stats      *services.StatsAggregator
	logger     logrus.FieldLogger
	upgrader   websocket.Upgrader
}

func NewAdmin(deps AdminDeps, allowedOrigins []string) (*Admin, error) {
	if deps.Rules == nil || deps.Activity == nil || deps.Reputation == nil || deps.Audit == nil || deps.Stats == nil {
		return nil, fmt.Errorf("rules, activity, reputation, audit and stats are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &Admin{
		rules:      deps.Rules,
		activity:   deps.Activity,
		reputation: deps.Reputation,
		audit:      deps.Audit,
		stats:      deps.Stats,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				_, wildcard := origins["*"]
				return ok || wildcard
			},
		},
	}, nil
}

// Routes registra as rotas administrativas em r.
func (h *Admin) Routes(r chi.Router) {
	r.Get("/rules", h.GetRules)
	r.Post("/update_rules", h.UpdateRules)
	r.Get("/rules/history", h.RuleHistory)
	r.Get("/logs", h.QueryLogs)
	r.Get("/logs/recent", h.RecentLogs)
	r.Get("/logs/stream", h.StreamLogs)
	r.Get("/traffic/stats", h.TrafficStats)
	r.Get("/ip/{ip}", h.IPDetails)
	r.Post("/add_to_blacklist", h.AddToBlacklist)
	r.Post("/add_to_whitelist", h.AddToWhitelist)
	r.Post("/remove_ip", h.RemoveIP)
	r.Post("/unblock_ip", h.UnblockIP)
	r.Get("/blocked_ips", h.BlockedIPs)
	r.Get("/blacklist", h.Blacklist)
	r.Get("/whitelist", h.Whitelist)
}

type ipRequest struct {
	IP     string `json:"ip"`
	Reason string `json:"reason,omitempty"`
}

func (h *Admin) GetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.Current(r.Context())
	if err != nil {
		h.internalError(w, err, "load rules")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "rules": rules})
}

func (h *Admin) UpdateRules(w http.ResponseWriter, r *http.Request) {
	var update domain.RuleUpdate
	if !decodeBody(w, r, &update) {
		return
	}

	rules, err := h.rules.Update(r.Context(), update)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRule) {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(w, err, "update rules")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Rules updated successfully",
		"rules":   rules,
	})
}

func (h *Admin) RuleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultHistoryLimit, maxLogLimit)
	history, err := h.rules.History(r.Context(), limit)
	if err != nil {
		h.internalError(w, err, "load rule history")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "count": len(history), "history": history})
}

func (h *Admin) RecentLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", services.DefaultRecentLogs, maxLogLimit)
	logs, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		h.internalError(w, err, "load recent logs")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "count": len(logs), "logs": logs})
}

func (h *Admin) QueryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AuditFilter{
		IP:     strings.TrimSpace(q.Get("ip")),
		Status: domain.AuditStatus(strings.TrimSpace(q.Get("status"))),
		Limit:  queryInt(r, "limit", services.DefaultRecentLogs, maxLogLimit),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", filter.Status))
		return
	}

	logs, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		h.internalError(w, err, "query logs")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "count": len(logs), "logs": logs})
}

func (h *Admin) TrafficStats(w http.ResponseWriter, r *http.Request) {
	minutes := queryInt(r, "minutes", 60, 24*60)
	history, err := h.stats.Recent(r.Context(), minutes)
	if err != nil {
		h.internalError(w, err, "load traffic history")
		return
	}
	latest, err := h.stats.Latest(r.Context())
	if err != nil {
		h.internalError(w, err, "load latest snapshot")
		return
	}
	totals, err := h.audit.Counts(r.Context())
	if err != nil {
		h.internalError(w, err, "count audit entries")
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"latest":  latest,
		"history": history,
		"count":   len(history),
		"totals":  totals,
	})
}

func (h *Admin) IPDetails(w http.ResponseWriter, r *http.Request) {
	ip := strings.TrimSpace(chi.URLParam(r, "ip"))
	ctx := r.Context()

	activity, err := h.activity.GetOrCreate(ctx, ip)
	if err != nil {
		h.internalError(w, err, "load ip activity")
		return
	}
	logs, err := h.audit.ByIP(ctx, ip, ipDetailLogLimit)
	if err != nil {
		h.internalError(w, err, "load ip logs")
		return
	}
	blacklisted, err := h.reputation.IsBlacklisted(ctx, ip)
	if err != nil {
		h.internalError(w, err, "check blacklist")
		return
	}
	whitelisted, err := h.reputation.IsWhitelisted(ctx, ip)
	if err != nil {
		h.internalError(w, err, "check whitelist")
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"ip":             ip,
		"activity":       activity,
		"logs":           logs,
		"is_blacklisted": blacklisted,
		"is_whitelisted": whitelisted,
	})
}

func (h *Admin) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req ipRequest
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := h.reputation.AddToBlacklist(r.Context(), req.IP, req.Reason)
	if err != nil {
		h.writeIPError(w, err, "add to blacklist")
		return
	}
	if _, err := h.activity.Block(r.Context(), entry.IP, blacklistBlockDuration, blacklistBlockReason); err != nil {
		h.internalError(w, err, "block blacklisted ip")
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("IP %s added to blacklist", entry.IP),
		"entry":   entry,
	})
}

func (h *Admin) AddToWhitelist(w http.ResponseWriter, r *http.Request) {
	var req ipRequest
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := h.reputation.AddToWhitelist(r.Context(), req.IP)
	if err != nil {
		h.writeIPError(w, err, "add to whitelist")
		return
	}
	if _, err := h.activity.Unblock(r.Context(), entry.IP); err != nil {
		h.internalError(w, err, "unblock whitelisted ip")
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("IP %s added to whitelist", entry.IP),
		"entry":   entry,
	})
}

func (h *Admin) RemoveIP(w http.ResponseWriter, r *http.Request) {
	var req ipRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fromBlacklist, err := h.reputation.RemoveFromBlacklist(r.Context(), req.IP)
	if err != nil {
		h.internalError(w, err, "remove from blacklist")
		return
	}
	fromWhitelist, err := h.reputation.RemoveFromWhitelist(r.Context(), req.IP)
	if err != nil {
		h.internalError(w, err, "remove from whitelist")
		return
	}

	if !fromBlacklist && !fromWhitelist {
		respond.Error(w, http.StatusNotFound, fmt.Sprintf("IP %s not found in lists", req.IP))
		return
	}
	source := "whitelist"
	if fromBlacklist {
		source = "blacklist"
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("IP %s removed from %s", req.IP, source),
	})
}

func (h *Admin) UnblockIP(w http.ResponseWriter, r *http.Request) {
	var req ipRequest
	if !decodeBody(w, r, &req) {
		return
	}

	found, err := h.activity.Unblock(r.Context(), req.IP)
	if err != nil {
		h.internalError(w, err, "unblock ip")
		return
	}
	if !found {
		respond.Error(w, http.StatusNotFound, fmt.Sprintf("IP %s not found", req.IP))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("IP %s unblocked successfully", req.IP),
	})
}

func (h *Admin) BlockedIPs(w http.ResponseWriter, r *http.Request) {
	blocked, err := h.activity.ListBlocked(r.Context())
	if err != nil {
		h.internalError(w, err, "list blocked ips")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "count": len(blocked), "blocked_ips": blocked})
}

func (h *Admin) Blacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.reputation.ListBlacklist(r.Context())
	if err != nil {
		h.internalError(w, err, "list blacklist")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "count": len(entries), "blacklist": entries})
}

func (h *Admin) Whitelist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.reputation.ListWhitelist(r.Context())
	if err != nil {
		h.internalError(w, err, "list whitelist")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "count": len(entries), "whitelist": entries})
}

// StreamLogs envia cada nova entrada de auditoria pelo websocket até o
// cliente desconectar.
func (h *Admin) StreamLogs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	entries, cancel := h.audit.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(entry); err != nil {
				h.logger.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *Admin) internalError(w http.ResponseWriter, err error, op string) {
	h.logger.WithError(err).Errorf("admin: %s failed", op)
	respond.Error(w, http.StatusInternalServerError, "Internal server error")
}

func (h *Admin) writeIPError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, domain.ErrInvalidIP) {
		respond.Error(w, http.StatusBadRequest, "ip is required")
		return
	}
	h.internalError(w, err, op)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback, ceiling int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return fallback
	}
	if n > ceiling {
		return ceiling
	}
	return n
}
