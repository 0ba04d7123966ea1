// Package proxy exposes the gateway operations over HTTP.
package proxy

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shahin-ai/ai-gateway/internal/auth"
	"github.com/shahin-ai/ai-gateway/internal/gateway"
	"github.com/shahin-ai/ai-gateway/internal/provider"
	"github.com/shahin-ai/ai-gateway/internal/providercfg"
	"github.com/shahin-ai/ai-gateway/internal/usage"
	"github.com/shahin-ai/ai-gateway/pkg/edgelimit"
)

// minEdgeCharge keeps tiny requests from slipping under the token
// budget; matches the reservation the provider call will likely spend.
const minEdgeCharge = 1000

type Handler struct {
	gateway  *gateway.Gateway
	resolver *providercfg.Resolver
	limiter  *edgelimit.Limiter
	tracer   trace.Tracer
}

func NewHandler(gw *gateway.Gateway, resolver *providercfg.Resolver, limiter *edgelimit.Limiter, tracer trace.Tracer) *Handler {
	return &Handler{
		gateway:  gw,
		resolver: resolver,
		limiter:  limiter,
		tracer:   tracer,
	}
}

type chatRequest struct {
	Message      string             `json:"message"`
	Messages     []provider.Message `json:"messages"`
	SystemPrompt string             `json:"system_prompt"`
	Provider     string             `json:"provider"`
	UseCase      string             `json:"use_case"`
}

func (req *chatRequest) options(tenantID string) gateway.Options {
	return gateway.Options{
		SystemPrompt: req.SystemPrompt,
		TenantID:     tenantID,
		Provider:     provider.Kind(req.Provider),
		UseCase:      req.UseCase,
	}
}

func (req *chatRequest) estimatedTokens() int {
	n := usage.EstimateTokens(req.Message)
	for _, m := range req.Messages {
		n += usage.EstimateTokens(m.Content)
	}
	if n < minEdgeCharge {
		n = minEdgeCharge
	}
	return n
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	tenantID, req, ok := h.prepare(w, r, "proxy.chat")
	if !ok {
		return
	}

	resp := h.gateway.Chat(r.Context(), req.Message, req.options(tenantID))
	writeResponse(w, resp)
}

func (h *Handler) HandleConversation(w http.ResponseWriter, r *http.Request) {
	tenantID, req, ok := h.prepare(w, r, "proxy.conversation")
	if !ok {
		return
	}

	resp := h.gateway.Conversation(r.Context(), req.Messages, req.options(tenantID))
	writeResponse(w, resp)
}

// HandleTypedPrompt runs the typed-prompt operation with the raw parsed
// object returned to the caller alongside the exchange metadata.
func (h *Handler) HandleTypedPrompt(w http.ResponseWriter, r *http.Request) {
	tenantID, req, ok := h.prepare(w, r, "proxy.prompt")
	if !ok {
		return
	}

	result := gateway.Prompt[json.RawMessage](r.Context(), h.gateway, req.Message, req.options(tenantID))
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       result.OK,
		"value":    result.Value,
		"reason":   result.Reason,
		"response": result.Response,
	})
}

// HandleListProviders returns the tenant's resolvable configurations
// without credentials.
func (h *Handler) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.GetTenantID(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	infos, err := h.resolver.List(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id": tenantID,
		"providers": infos,
	})
}

func (h *Handler) HandleAvailable(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.GetTenantID(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	available, err := h.resolver.Available(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

// HandleTestProvider probes one configuration with a canned prompt.
func (h *Handler) HandleTestProvider(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.GetTenantID(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	configID := chi.URLParam(r, "id")
	resp := h.gateway.TestProvider(r.Context(), configID)
	writeResponse(w, resp)
}

// prepare authenticates, decodes the body, records the trace span, and
// charges the edge token budget.
func (h *Handler) prepare(w http.ResponseWriter, r *http.Request, spanName string) (string, *chatRequest, bool) {
	ctx := r.Context()
	tenantID := auth.GetTenantID(ctx)
	if tenantID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", nil, false
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", nil, false
	}

	_, span := h.tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("request_id", auth.GetRequestID(ctx)),
		attribute.String("use_case", req.UseCase),
	)

	allowed, err := h.limiter.Allow(ctx, tenantID, req.estimatedTokens())
	if err != nil || !allowed {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":       "rate limit exceeded",
			"retry_after": "60s",
		})
		return "", nil, false
	}

	return tenantID, &req, true
}

// writeResponse maps a gateway response onto HTTP. Expected failures
// stay structured; only the status code distinguishes them.
func writeResponse(w http.ResponseWriter, resp gateway.Response) {
	status := http.StatusOK
	if !resp.Success {
		switch {
		case resp.Error == "No AI provider configured",
			resp.Error == "AI provider temporarily unavailable":
			status = http.StatusServiceUnavailable
		case strings.HasPrefix(resp.Error, "Rate limit exceeded"):
			status = http.StatusTooManyRequests
		default:
			status = http.StatusBadRequest
		}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
