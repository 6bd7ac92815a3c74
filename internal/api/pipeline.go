package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/detect"
	"github.com/rebinpro/rebin/internal/logging"
)

// handleInfer accepts a multipart image upload and returns detected items.
func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(detect.MaxImageBytes + 1024); err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "No file provided")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, detect.MaxImageBytes+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Could not read upload")
		return
	}
	if len(image) > detect.MaxImageBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, core.FaultValidation, "Image file too large (max 10MB)")
		return
	}

	zip := r.FormValue("zip")

	start := time.Now()
	items, err := s.detector.Detect(r.Context(), image, header.Header.Get("Content-Type"), header.Filename)
	s.metrics.RecordGatewayCall("detect", time.Since(start), faultKind(err))
	if err != nil {
		s.respondFault(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"zip":   zip,
	})
}

type explainRequest struct {
	Items        []core.ItemDetection `json:"items"`
	Zip          string               `json:"zip"`
	PoliciesJSON map[string]any       `json:"policies_json"`
}

// handleExplain classifies detected items into bin decisions via the
// reasoning gateway. Stored policy rules for the ZIP are supplied as
// advisory context unless the client sent its own overrides.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Invalid JSON")
		return
	}
	if len(req.Items) == 0 {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "No items to classify")
		return
	}

	labels := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Label != "" {
			labels = append(labels, item.Label)
		}
	}
	if len(labels) == 0 {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "No items to classify")
		return
	}

	policies := req.PoliciesJSON
	if policies == nil && req.Zip != "" {
		if policy, err := s.policyStore.Get(req.Zip); err == nil {
			policies = map[string]any{
				"recycling": policy.Rules.Recycling,
				"compost":   policy.Rules.Compost,
				"trash":     policy.Rules.Trash,
			}
		}
	}

	start := time.Now()
	decisions, err := s.reasoner.Classify(r.Context(), labels, req.Zip, policies)
	s.metrics.RecordGatewayCall("reason", time.Since(start), faultKind(err))
	if err != nil {
		s.respondFault(w, err)
		return
	}

	s.metrics.RecordDecisions(len(decisions))
	s.respondJSON(w, http.StatusOK, map[string]any{
		"decisions": decisions,
	})
}

type eventRequest struct {
	UserID    string   `json:"user_id"`
	Zip       string   `json:"zip"`
	ItemsJSON []string `json:"items_json"`
	Decision  string   `json:"decision"`
	CO2eSaved float64  `json:"co2e_saved"`
}

// handleCreateEvent logs one confirmed sorting action. The achievement check
// runs detached; its failure never affects the insert.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "Invalid JSON")
		return
	}

	if len(req.ItemsJSON) == 0 {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "items_json is required")
		return
	}
	bin := core.Bin(req.Decision)
	if !core.ValidBin(bin) {
		s.respondError(w, http.StatusBadRequest, core.FaultValidation, "decision must be recycling, compost or trash")
		return
	}

	event := &core.SortEvent{
		UserID:    req.UserID,
		Zip:       req.Zip,
		Items:     req.ItemsJSON,
		Decision:  bin,
		CO2eSaved: req.CO2eSaved,
	}

	id, err := s.eventStore.Insert(event)
	if err != nil {
		logging.Error("failed to insert sort event: %v", err)
		s.respondError(w, http.StatusInternalServerError, core.FaultServer, "Failed to log event")
		return
	}

	s.metrics.RecordEventLogged()
	s.checker.CheckAsync(req.UserID)
	s.Broadcast("event.created", event)

	s.respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// faultKind is the error label for gateway metrics; successes stay unlabeled.
func faultKind(err error) string {
	if err == nil {
		return ""
	}
	return string(core.KindOf(err))
}
